package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a request variant against its struct tags and
// flattens field errors into one readable message.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return &ValidationError{Message: strings.Join(msgs, "; ")}
}

// ValidationError is returned by Validate when a field breaks its rules.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// LoginRequest is the body of POST /api/login. Empty credentials match no user.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username           string   `json:"username" validate:"required"`
	Password           string   `json:"password" validate:"required"`
	Name               string   `json:"name" validate:"required"`
	Email              string   `json:"email" validate:"required,email"`
	Role               Role     `json:"role" validate:"required,oneof=admin faculty student"`
	ProfileImage       *string  `json:"profileImage"`
	Department         string   `json:"department"`
	RegistrationNumber string   `json:"registrationNumber"`
	Semester           int      `json:"semester" validate:"omitempty,min=1"`
	SubjectIDs         []string `json:"subjectIds"`
	Type               string   `json:"type" validate:"omitempty,oneof=Regular Detained"`
}

// CreateCourseRequest is the body of POST /api/courses.
type CreateCourseRequest struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required"`
	Credits     int    `json:"credits" validate:"omitempty,min=1"`
	Semester    int    `json:"semester" validate:"required,min=1"`
	Department  string `json:"department" validate:"required"`
	FacultyID   *int   `json:"facultyId"`
	Description string `json:"description"`
}

// CreateClassRequest is the body of POST /api/classes.
type CreateClassRequest struct {
	CourseID   string `json:"courseId" validate:"required"`
	Day        string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime  string `json:"startTime" validate:"required"`
	EndTime    string `json:"endTime" validate:"required"`
	RoomNumber string `json:"roomNumber"`
}

// CreateEnrollmentRequest is the body of POST /api/enrollments.
type CreateEnrollmentRequest struct {
	StudentID int    `json:"studentId" validate:"required,min=1"`
	CourseID  string `json:"courseId" validate:"required"`
}

// SubmitAttendanceRequest is the body of POST /api/attendance. Only the
// natural key and status are mandatory; other fields overwrite the stored
// record when present.
type SubmitAttendanceRequest struct {
	StudentID          int      `json:"studentId" validate:"required,min=1"`
	ClassID            string   `json:"classId" validate:"required"`
	Date               string   `json:"date" validate:"required,datetime=2006-01-02"`
	Status             Status   `json:"status" validate:"required,oneof=present absent late excused"`
	Subject            string   `json:"subject"`
	SubjectCode        string   `json:"subjectCode"`
	RegistrationNumber string   `json:"registrationNumber"`
	StudentName        string   `json:"studentName"`
	Instructor         string   `json:"instructor"`
	FacultyID          *int     `json:"facultyId"`
	Time               string   `json:"time"`
	Duration           *float64 `json:"duration"`
	Notes              *string  `json:"notes"`
	Department         string   `json:"department"`
	RecordedBy         *int     `json:"recordedBy"`
}

// Apply merges the request onto rec. Empty optional fields leave the
// stored values untouched.
func (r SubmitAttendanceRequest) Apply(rec *AttendanceRecord) {
	rec.StudentID = r.StudentID
	rec.ClassID = r.ClassID
	rec.Date = r.Date
	rec.Status = r.Status
	setString(&rec.Subject, r.Subject)
	setString(&rec.SubjectCode, r.SubjectCode)
	setString(&rec.RegistrationNumber, r.RegistrationNumber)
	setString(&rec.StudentName, r.StudentName)
	setString(&rec.Instructor, r.Instructor)
	setString(&rec.Time, r.Time)
	setString(&rec.Department, r.Department)
	if r.FacultyID != nil {
		rec.FacultyID = cloneInt(r.FacultyID)
	}
	if r.RecordedBy != nil {
		rec.RecordedBy = cloneInt(r.RecordedBy)
	}
	if r.Duration != nil {
		rec.Duration = *r.Duration
	}
	if r.Notes != nil {
		rec.Notes = *r.Notes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
