package model

import "time"

// Role is the access level of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFaculty Role = "faculty"
	RoleStudent Role = "student"
)

// Status is the outcome recorded for a student in a class session.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusExcused Status = "excused"
)

// Statuses lists every accepted attendance status.
var Statuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusExcused}

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// Roll-list standing of a student.
const (
	StandingRegular  = "Regular"
	StandingDetained = "Detained"
)

// DateLayout is the calendar date format used by attendance records and filters.
const DateLayout = "2006-01-02"

// User is an admin, faculty member or student.
type User struct {
	ID                 int       `json:"id" yaml:"id"`
	Username           string    `json:"username" yaml:"username"`
	Password           string    `json:"-" yaml:"password"`
	Name               string    `json:"name" yaml:"name"`
	Email              string    `json:"email" yaml:"email"`
	Role               Role      `json:"role" yaml:"role"`
	ProfileImage       *string   `json:"profileImage" yaml:"profileImage"`
	Department         string    `json:"department,omitempty" yaml:"department"`
	RegistrationNumber string    `json:"registrationNumber,omitempty" yaml:"registrationNumber"`
	Semester           int       `json:"semester,omitempty" yaml:"semester"`
	SubjectIDs         []string  `json:"subjectIds,omitempty" yaml:"subjectIds"`
	Type               string    `json:"type,omitempty" yaml:"type"`
	CreatedAt          time.Time `json:"createdAt" yaml:"createdAt"`
}

// Clone returns a copy that shares no memory with u.
func (u User) Clone() User {
	if u.ProfileImage != nil {
		img := *u.ProfileImage
		u.ProfileImage = &img
	}
	if u.SubjectIDs != nil {
		u.SubjectIDs = append([]string(nil), u.SubjectIDs...)
	}
	return u
}

// Teaches reports whether the faculty member owns the subject id.
func (u User) Teaches(subjectID string) bool {
	for _, id := range u.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// Course is a subject offered by a department in a given semester.
type Course struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Code        string `json:"code" yaml:"code"`
	Credits     int    `json:"credits" yaml:"credits"`
	Semester    int    `json:"semester" yaml:"semester"`
	Department  string `json:"department" yaml:"department"`
	FacultyID   *int   `json:"facultyId,omitempty" yaml:"facultyId"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Clone returns a copy that shares no memory with c.
func (c Course) Clone() Course {
	c.FacultyID = cloneInt(c.FacultyID)
	return c
}

// CourseView is a course enriched with the name of its faculty member.
type CourseView struct {
	Course
	FacultyName string `json:"facultyName"`
}

// Class is a weekly schedule slot for a course.
type Class struct {
	ID         int    `json:"id"`
	CourseID   string `json:"courseId"`
	Day        string `json:"day"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	RoomNumber string `json:"roomNumber,omitempty"`
}

// ClassView is a class enriched with resolved course and faculty names.
type ClassView struct {
	Class
	CourseName  string `json:"courseName,omitempty"`
	FacultyName string `json:"facultyName"`
}

// Enrollment ties a student to a course.
type Enrollment struct {
	ID             int       `json:"id"`
	StudentID      int       `json:"studentId"`
	CourseID       string    `json:"courseId"`
	EnrollmentDate time.Time `json:"enrollmentDate"`
}

// AttendanceRecord is one student's status in one class session.
type AttendanceRecord struct {
	ID                 string  `json:"id"`
	Date               string  `json:"date"`
	Subject            string  `json:"subject"`
	SubjectCode        string  `json:"subjectCode"`
	StudentID          int     `json:"studentId"`
	RegistrationNumber string  `json:"registrationNumber,omitempty"`
	StudentName        string  `json:"studentName"`
	Status             Status  `json:"status"`
	Instructor         string  `json:"instructor"`
	FacultyID          *int    `json:"facultyId,omitempty"`
	Time               string  `json:"time"`
	Duration           float64 `json:"duration"`
	Notes              string  `json:"notes"`
	ClassID            string  `json:"classId"`
	Department         string  `json:"department"`
	RecordedBy         *int    `json:"recordedBy,omitempty"`
}

// Clone returns a copy that shares no memory with r.
func (r AttendanceRecord) Clone() AttendanceRecord {
	r.FacultyID = cloneInt(r.FacultyID)
	r.RecordedBy = cloneInt(r.RecordedBy)
	return r
}

// NaturalKey identifies the session a record belongs to.
type NaturalKey struct {
	StudentID int
	ClassID   string
	Date      string
}

// Key returns the record's natural key.
func (r AttendanceRecord) Key() NaturalKey {
	return NaturalKey{StudentID: r.StudentID, ClassID: r.ClassID, Date: r.Date}
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
