package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"attendboard/internal/model"
	"attendboard/internal/seed"
)

var (
	// ErrDuplicateEnrollment is returned when a student is already enrolled in the course.
	ErrDuplicateEnrollment = errors.New("student already enrolled in this course")
	// ErrNotFound is returned by lookups that match nothing.
	ErrNotFound = errors.New("not found")
)

// Memory holds the mutable collections behind the mock API. Every
// collection starts as a deep copy of the seed tables.
type Memory struct {
	mu    sync.RWMutex
	seed  *seed.Tables
	now   func() time.Time
	state state
}

type state struct {
	users       []model.User
	courses     []model.Course
	classes     []model.Class
	attendance  []model.AttendanceRecord
	enrollments []model.Enrollment

	userSeq       Sequence
	courseSeq     Sequence
	classSeq      Sequence
	enrollmentSeq Sequence
	attendanceSeq Sequence
}

// NewMemory builds a store from seed tables. now defaults to time.Now.
func NewMemory(tables *seed.Tables, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	m := &Memory{seed: tables, now: now}
	m.state = m.fresh()
	return m
}

// Reset replaces every collection with a fresh copy of the seed tables.
// Classes and enrollments start empty.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = m.fresh()
}

// Counts returns the size of every collection keyed by collection name.
func (m *Memory) Counts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"users":       len(m.state.users),
		"courses":     len(m.state.courses),
		"classes":     len(m.state.classes),
		"attendance":  len(m.state.attendance),
		"enrollments": len(m.state.enrollments),
	}
}

// Seed exposes the immutable tables the store was built from.
func (m *Memory) Seed() *seed.Tables { return m.seed }

func (m *Memory) fresh() state {
	s := state{
		users:      make([]model.User, 0, len(m.seed.Users)),
		courses:    make([]model.Course, 0, len(m.seed.Courses)),
		attendance: make([]model.AttendanceRecord, 0, len(m.seed.Attendance)),
	}
	maxUser := 0
	for _, u := range m.seed.Users {
		s.users = append(s.users, u.Clone())
		maxUser = max(maxUser, u.ID)
	}
	for _, c := range m.seed.Courses {
		s.courses = append(s.courses, c.Clone())
	}
	for _, r := range m.seed.Attendance {
		s.attendance = append(s.attendance, r.Clone())
	}
	s.userSeq = NewSequence(maxUser)
	s.courseSeq = NewSequence(len(m.seed.Courses))
	s.classSeq = NewSequence(0)
	s.enrollmentSeq = NewSequence(0)
	s.attendanceSeq = NewSequence(0)
	return s
}

// View runs fn with shared access to the collections.
func (m *Memory) View(fn func(tx *Tx)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(&Tx{s: &m.state, now: m.now})
}

// Update runs fn with exclusive access to the collections.
func (m *Memory) Update(fn func(tx *Tx)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&Tx{s: &m.state, now: m.now})
}

// Tx is a handle on the collections valid only inside View or Update.
// Everything it returns is a copy.
type Tx struct {
	s   *state
	now func() time.Time
}

// Now returns the store clock.
func (tx *Tx) Now() time.Time { return tx.now() }

// Users returns the users accepted by keep, in insertion order.
func (tx *Tx) Users(keep func(model.User) bool) []model.User {
	out := make([]model.User, 0, len(tx.s.users))
	for _, u := range tx.s.users {
		if keep == nil || keep(u) {
			out = append(out, u.Clone())
		}
	}
	return out
}

// User returns the user with the given id.
func (tx *Tx) User(id int) (model.User, error) {
	for _, u := range tx.s.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return model.User{}, ErrNotFound
}

// UserName resolves a user's display name, restricted to a role when role
// is not empty.
func (tx *Tx) UserName(id int, role model.Role) (string, bool) {
	for _, u := range tx.s.users {
		if u.ID == id && (role == "" || u.Role == role) {
			return u.Name, true
		}
	}
	return "", false
}

// AddUser appends a user, assigning the next user id.
func (tx *Tx) AddUser(u model.User) model.User {
	u.ID = tx.s.userSeq.Next()
	u.CreatedAt = tx.now().UTC()
	u = u.Clone()
	tx.s.users = append(tx.s.users, u)
	return u.Clone()
}

// Courses returns the courses accepted by keep, in insertion order.
func (tx *Tx) Courses(keep func(model.Course) bool) []model.Course {
	out := make([]model.Course, 0, len(tx.s.courses))
	for _, c := range tx.s.courses {
		if keep == nil || keep(c) {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Course finds a course by id, falling back to its code.
func (tx *Tx) Course(idOrCode string) (model.Course, error) {
	for _, c := range tx.s.courses {
		if c.ID == idOrCode {
			return c.Clone(), nil
		}
	}
	for _, c := range tx.s.courses {
		if c.Code == idOrCode {
			return c.Clone(), nil
		}
	}
	return model.Course{}, ErrNotFound
}

// AddCourse appends a course under a generated placeholder id.
func (tx *Tx) AddCourse(c model.Course) model.Course {
	c.ID = fmt.Sprintf("NEW_COURSE_%d", tx.s.courseSeq.Next())
	c = c.Clone()
	tx.s.courses = append(tx.s.courses, c)
	return c.Clone()
}

// Classes returns the schedule slots accepted by keep.
func (tx *Tx) Classes(keep func(model.Class) bool) []model.Class {
	out := make([]model.Class, 0, len(tx.s.classes))
	for _, c := range tx.s.classes {
		if keep == nil || keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// AddClass appends a schedule slot, assigning the next class id.
func (tx *Tx) AddClass(c model.Class) model.Class {
	c.ID = tx.s.classSeq.Next()
	tx.s.classes = append(tx.s.classes, c)
	return c
}

// Enrollments returns the enrollments accepted by keep.
func (tx *Tx) Enrollments(keep func(model.Enrollment) bool) []model.Enrollment {
	out := make([]model.Enrollment, 0, len(tx.s.enrollments))
	for _, e := range tx.s.enrollments {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// AddEnrollment appends an enrollment unless the student already holds one
// for the course.
func (tx *Tx) AddEnrollment(studentID int, courseID string) (model.Enrollment, error) {
	for _, e := range tx.s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return model.Enrollment{}, ErrDuplicateEnrollment
		}
	}
	e := model.Enrollment{
		ID:             tx.s.enrollmentSeq.Next(),
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: tx.now().UTC(),
	}
	tx.s.enrollments = append(tx.s.enrollments, e)
	return e, nil
}

// Attendance returns the records accepted by keep.
func (tx *Tx) Attendance(keep func(model.AttendanceRecord) bool) []model.AttendanceRecord {
	out := make([]model.AttendanceRecord, 0, len(tx.s.attendance))
	for _, r := range tx.s.attendance {
		if keep == nil || keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// UpsertAttendance updates the record sharing the request's natural key or
// appends a new one. created reports which happened.
func (tx *Tx) UpsertAttendance(req model.SubmitAttendanceRequest) (rec model.AttendanceRecord, created bool) {
	key := model.NaturalKey{StudentID: req.StudentID, ClassID: req.ClassID, Date: req.Date}
	for i := range tx.s.attendance {
		if tx.s.attendance[i].Key() == key {
			req.Apply(&tx.s.attendance[i])
			return tx.s.attendance[i].Clone(), false
		}
	}
	req.Apply(&rec)
	code := rec.SubjectCode
	if code == "" {
		code = "SUB"
	}
	rec.ID = fmt.Sprintf("%s_%d_%d", code, rec.StudentID, tx.s.attendanceSeq.Next())
	tx.s.attendance = append(tx.s.attendance, rec.Clone())
	return rec, true
}
