package mockapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func dateParam(req *Request, key string) (t time.Time, present, valid bool) {
	raw := req.Query.Get(key)
	if raw == "" {
		return time.Time{}, false, true
	}
	t, valid = parseDate(raw)
	return t, true, valid
}

// attendanceRange filters by student, department and an inclusive date
// window. A malformed filter yields an empty list.
func (d *Dispatcher) attendanceRange(tx *store.Tx, req *Request) *Response {
	empty := ok([]model.AttendanceRecord{})

	studentID, hasStudent, valid := intParam(req.Query, "studentId")
	if !valid {
		return empty
	}
	regNo := req.Query.Get("registrationNumber")
	department := req.Query.Get("department")
	start, hasStart, startOK := dateParam(req, "startDate")
	end, hasEnd, endOK := dateParam(req, "endDate")
	if !startOK || !endOK {
		return empty
	}

	return ok(tx.Attendance(func(r model.AttendanceRecord) bool {
		switch {
		case hasStudent && r.StudentID != studentID:
			return false
		case !hasStudent && regNo != "" && r.RegistrationNumber != regNo:
			return false
		case department != "" && r.Department != department:
			return false
		}
		if !hasStart && !hasEnd {
			return true
		}
		day, parsed := parseDate(r.Date)
		if !parsed {
			return false
		}
		if hasStart && day.Before(start) {
			return false
		}
		return !hasEnd || !day.After(end)
	}))
}

func (d *Dispatcher) sessionAttendance(tx *store.Tx, req *Request) *Response {
	classID, date := req.Params["classId"], req.Params["date"]
	return ok(tx.Attendance(func(r model.AttendanceRecord) bool {
		return r.ClassID == classID && r.Date == date
	}))
}

func (d *Dispatcher) listAttendance(tx *store.Tx, _ *Request) *Response {
	return ok(tx.Attendance(nil))
}

func (d *Dispatcher) submitAttendance(tx *store.Tx, req *Request) *Response {
	var body model.SubmitAttendanceRequest
	if err := decode(req.Body, &body); err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	rec, isNew := tx.UpsertAttendance(body)
	d.log.Debug("attendance saved",
		zap.String("id", rec.ID),
		zap.String("status", string(rec.Status)),
		zap.Bool("created", isNew))
	if isNew {
		return created(rec)
	}
	return ok(rec)
}
