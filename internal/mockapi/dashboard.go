package mockapi

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

const defaultDepartment = "MCA"

// ChartPoint is one day of the dashboard attendance chart.
type ChartPoint struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// ClassSummary is one row of the dashboard class summary.
type ClassSummary struct {
	SubjectName    string `json:"subjectName"`
	SubjectCode    string `json:"subjectCode"`
	FacultyName    string `json:"facultyName"`
	Time           string `json:"time"`
	AttendanceRate int    `json:"attendanceRate"`
}

// Alert is a dashboard notice about a department's attendance.
type Alert struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Date    string `json:"date"`
}

// Stats are the headline dashboard figures.
type Stats struct {
	AttendanceRate int `json:"attendanceRate"`
	TotalStudents  int `json:"totalStudents"`
	ClassesToday   int `json:"classesToday"`
	AbsentStudents int `json:"absentStudents"`
}

func department(req *Request) string {
	if dept := req.Query.Get("department"); dept != "" {
		return dept
	}
	return defaultDepartment
}

func students(tx *store.Tx, dept string) []model.User {
	return tx.Users(func(u model.User) bool {
		return u.Role == model.RoleStudent && u.Department == dept
	})
}

// dashboardChart synthesizes present/absent counts for the last seven days.
func (d *Dispatcher) dashboardChart(tx *store.Tx, req *Request) *Response {
	n := len(students(tx, department(req)))
	today := tx.Now()
	points := make([]ChartPoint, 0, 7)
	for i := 0; i < 7; i++ {
		present := d.rng.IntN(n*7/10) + n/10
		points = append(points, ChartPoint{
			Date:    today.AddDate(0, 0, i-6).Format(model.DateLayout),
			Present: present,
			Absent:  n - present,
		})
	}
	return ok(points)
}

func (d *Dispatcher) dashboardClassSummary(tx *store.Tx, req *Request) *Response {
	dept := department(req)
	courses := tx.Courses(func(c model.Course) bool { return c.Department == dept })
	if len(courses) > 4 {
		courses = courses[:4]
	}
	out := make([]ClassSummary, 0, len(courses))
	for _, c := range courses {
		out = append(out, ClassSummary{
			SubjectName:    c.Name,
			SubjectCode:    c.Code,
			FacultyName:    facultyName(tx, c.FacultyID),
			Time:           "10:00 AM",
			AttendanceRate: 75 + d.rng.IntN(20),
		})
	}
	return ok(out)
}

// dashboardRecentAttendance returns the five latest records of the
// department with the student's current name.
func (d *Dispatcher) dashboardRecentAttendance(tx *store.Tx, req *Request) *Response {
	dept := department(req)
	recs := tx.Attendance(func(r model.AttendanceRecord) bool { return r.Department == dept })
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date > recs[j].Date })
	if len(recs) > 5 {
		recs = recs[:5]
	}
	for i := range recs {
		if name, found := tx.UserName(recs[i].StudentID, ""); found {
			recs[i].StudentName = name
		}
	}
	return ok(recs)
}

func (d *Dispatcher) dashboardAlerts(tx *store.Tx, req *Request) *Response {
	dept := department(req)
	now := tx.Now().UTC().Format(time.RFC3339)
	var alerts []Alert
	for _, s := range students(tx, dept) {
		if s.Type != model.StandingDetained {
			continue
		}
		alerts = append(alerts, Alert{
			ID:      "alert_" + s.RegistrationNumber,
			Message: fmt.Sprintf("Student %s (%s) has low attendance.", s.Name, s.RegistrationNumber),
			Type:    "warning",
			Date:    now,
		})
		if len(alerts) == 2 {
			break
		}
	}
	if len(alerts) == 0 {
		alerts = append(alerts, Alert{
			ID:      "info_" + strings.ToLower(dept) + "_ok",
			Message: fmt.Sprintf("%s attendance is generally good.", dept),
			Type:    "info",
			Date:    now,
		})
	}
	return ok(alerts)
}

// dashboardStats falls back to fixed figures when no class is scheduled
// today or nobody was marked absent.
func (d *Dispatcher) dashboardStats(tx *store.Tx, req *Request) *Response {
	dept := department(req)
	now := tx.Now()
	weekday := now.Weekday().String()
	date := now.Format(model.DateLayout)

	total := len(students(tx, dept))
	classes := len(tx.Classes(func(c model.Class) bool {
		if c.Day != weekday {
			return false
		}
		course, err := tx.Course(c.CourseID)
		return err == nil && course.Department == dept
	}))
	absent := len(tx.Attendance(func(r model.AttendanceRecord) bool {
		return r.Department == dept && r.Date == date && r.Status == model.StatusAbsent
	}))
	if classes == 0 {
		classes = 2
	}
	if absent == 0 {
		absent = total * 5 / 100
	}
	return ok(Stats{
		AttendanceRate: 80 + d.rng.IntN(10),
		TotalStudents:  total,
		ClassesToday:   classes,
		AbsentStudents: absent,
	})
}
