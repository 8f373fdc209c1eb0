package mockapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

func (d *Dispatcher) listEnrollments(tx *store.Tx, _ *Request) *Response {
	return ok(tx.Enrollments(nil))
}

// courseEnrollments accepts either a course id or a course code. An unknown
// course has no enrollments.
func (d *Dispatcher) courseEnrollments(tx *store.Tx, req *Request) *Response {
	course, err := tx.Course(req.Params["id"])
	if err != nil {
		return ok([]model.Enrollment{})
	}
	return ok(tx.Enrollments(func(e model.Enrollment) bool { return e.CourseID == course.ID }))
}

func (d *Dispatcher) createEnrollment(tx *store.Tx, req *Request) *Response {
	var body model.CreateEnrollmentRequest
	if err := decode(req.Body, &body); err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	course, err := tx.Course(body.CourseID)
	if err != nil {
		return fail(http.StatusNotFound, "Course not found")
	}
	e, err := tx.AddEnrollment(body.StudentID, course.ID)
	if errors.Is(err, store.ErrDuplicateEnrollment) {
		return fail(http.StatusConflict, "Student already enrolled in this course")
	}
	if err != nil {
		return fail(http.StatusInternalServerError, err.Error())
	}
	d.log.Info("enrolled student", zap.Int("student", e.StudentID), zap.String("course", e.CourseID))
	return created(e)
}
