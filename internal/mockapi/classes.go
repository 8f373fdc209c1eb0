package mockapi

import (
	"net/http"

	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

func classViews(tx *store.Tx, classes []model.Class) []model.ClassView {
	out := make([]model.ClassView, 0, len(classes))
	for _, c := range classes {
		v := model.ClassView{Class: c, FacultyName: noFaculty}
		if course, err := tx.Course(c.CourseID); err == nil {
			v.CourseName = course.Name
			v.FacultyName = facultyName(tx, course.FacultyID)
		}
		out = append(out, v)
	}
	return out
}

func (d *Dispatcher) listClasses(tx *store.Tx, _ *Request) *Response {
	return ok(classViews(tx, tx.Classes(nil)))
}

// todayClasses matches on the weekday of the store clock.
func (d *Dispatcher) todayClasses(tx *store.Tx, _ *Request) *Response {
	today := tx.Now().Weekday().String()
	return ok(classViews(tx, tx.Classes(func(c model.Class) bool { return c.Day == today })))
}

func (d *Dispatcher) courseClasses(tx *store.Tx, req *Request) *Response {
	id := req.Params["id"]
	return ok(classViews(tx, tx.Classes(func(c model.Class) bool { return c.CourseID == id })))
}

func (d *Dispatcher) createClass(tx *store.Tx, req *Request) *Response {
	var body model.CreateClassRequest
	if err := decode(req.Body, &body); err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	c := tx.AddClass(model.Class{
		CourseID:   body.CourseID,
		Day:        body.Day,
		StartTime:  body.StartTime,
		EndTime:    body.EndTime,
		RoomNumber: body.RoomNumber,
	})
	d.log.Info("added class", zap.Int("id", c.ID), zap.String("course", c.CourseID))
	return created(c)
}
