package attendance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/query"
	"attendboard/internal/queue"
)

// MessageType tags bulk submissions on the queue.
const MessageType = "attendance.bulk"

// Mark is the status and note given to one student.
type Mark struct {
	Status model.Status `json:"status" validate:"omitempty,oneof=present absent late excused"`
	Notes  string       `json:"notes"`
}

// BulkRequest marks a whole class session at once. Enrolled students
// without a mark are recorded absent.
type BulkRequest struct {
	CourseID   string       `json:"courseId" validate:"required"`
	ClassID    string       `json:"classId" validate:"required"`
	Date       string       `json:"date" validate:"required,datetime=2006-01-02"`
	RecordedBy int          `json:"recordedBy" validate:"required,min=1"`
	Marks      map[int]Mark `json:"marks" validate:"omitempty,dive"`
}

// Failure is a student whose record could not be written.
type Failure struct {
	StudentID int    `json:"studentId"`
	Error     string `json:"error"`
}

// Result summarizes a bulk submission. Records written before a failure
// stay written.
type Result struct {
	Enrolled int       `json:"enrolled"`
	Recorded []string  `json:"recorded"`
	Failures []Failure `json:"failures,omitempty"`
}

// JobObserver is told when a job reaches a terminal state.
type JobObserver interface {
	ObserveJob(status string, elapsed time.Duration)
}

// Service runs bulk submissions through the query client, either inline or
// via the queue.
type Service struct {
	client   *query.Client
	queue    queue.Queue
	jobs     *Tracker
	log      *zap.Logger
	observer JobObserver
}

// NewService wires a service. q may be nil when only Submit is used.
func NewService(client *query.Client, q queue.Queue, jobs *Tracker, log *zap.Logger) *Service {
	if jobs == nil {
		jobs = NewTracker(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{client: client, queue: q, jobs: jobs, log: log}
}

// SetObserver reports finished jobs to o.
func (s *Service) SetObserver(o JobObserver) { s.observer = o }

// Submit records one attendance entry per enrolled student, one call at a
// time, in enrollment order.
func (s *Service) Submit(ctx context.Context, req BulkRequest) (Result, error) {
	if err := model.Validate(req); err != nil {
		return Result{}, err
	}

	var enrollments []model.Enrollment
	if err := s.client.Fetch(ctx, query.NewKey("/api/enrollments/course", req.CourseID), &enrollments); err != nil {
		return Result{}, fmt.Errorf("load enrollments: %w", err)
	}
	details, err := s.details(ctx, req.CourseID)
	if err != nil {
		return Result{}, err
	}

	res := Result{Enrolled: len(enrollments), Recorded: make([]string, 0, len(enrollments))}
	for _, e := range enrollments {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		body := details.record(req, e.StudentID)
		var rec model.AttendanceRecord
		err := s.client.Mutate(ctx, http.MethodPost, "/api/attendance", body, &rec,
			"/api/attendance", "/api/attendance/class", "/api/attendance/range")
		if err != nil {
			s.log.Warn("attendance submit failed", zap.Int("student", e.StudentID), zap.Error(err))
			res.Failures = append(res.Failures, Failure{StudentID: e.StudentID, Error: err.Error()})
			continue
		}
		res.Recorded = append(res.Recorded, rec.ID)
	}
	s.log.Info("bulk attendance submitted",
		zap.String("course", req.CourseID),
		zap.String("class", req.ClassID),
		zap.String("date", req.Date),
		zap.Int("recorded", len(res.Recorded)),
		zap.Int("failed", len(res.Failures)))
	return res, nil
}

// Enqueue validates req and hands it to the worker.
func (s *Service) Enqueue(ctx context.Context, req BulkRequest) (Job, error) {
	if err := model.Validate(req); err != nil {
		return Job{}, err
	}
	if s.queue == nil {
		return Job{}, fmt.Errorf("no queue configured")
	}
	id := uuid.NewString()
	msg, err := queue.NewMessage(MessageType, id, req)
	if err != nil {
		return Job{}, err
	}
	job := s.jobs.add(id, req)
	if err := s.queue.Publish(ctx, msg); err != nil {
		s.jobs.update(id, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
		})
		return Job{}, fmt.Errorf("publish job: %w", err)
	}
	s.log.Info("bulk attendance queued", zap.String("job", id), zap.String("course", req.CourseID))
	return job, nil
}

// Job returns the state of a queued submission.
func (s *Service) Job(id string) (Job, error) { return s.jobs.Get(id) }

// PruneJobs drops finished jobs older than maxAge.
func (s *Service) PruneJobs(maxAge time.Duration) int {
	n := s.jobs.Prune(maxAge)
	if n > 0 {
		s.log.Debug("pruned finished jobs", zap.Int("count", n))
	}
	return n
}

// Handle runs a queued submission. Messages of other types are ignored.
func (s *Service) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != MessageType {
		return nil
	}
	var req BulkRequest
	if err := msg.Decode(&req); err != nil {
		s.jobs.update(msg.ID, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
		})
		return err
	}
	if _, err := s.jobs.Get(msg.ID); err != nil {
		// Published by another process; track it from here on.
		s.jobs.add(msg.ID, req)
	}

	start := time.Now()
	s.jobs.update(msg.ID, func(j *Job) { j.Status = JobRunning })
	res, err := s.Submit(ctx, req)
	status := JobDone
	if err != nil {
		status = JobFailed
	}
	s.jobs.update(msg.ID, func(j *Job) {
		j.Status = status
		if err != nil {
			j.Error = err.Error()
			return
		}
		j.Result = &res
	})
	if s.observer != nil {
		s.observer.ObserveJob(string(status), time.Since(start))
	}
	return err
}

type sessionDetails struct {
	course   model.CourseView
	students map[int]model.User
}

func (s *Service) details(ctx context.Context, courseID string) (sessionDetails, error) {
	d := sessionDetails{students: map[int]model.User{}}

	var courses []model.CourseView
	if err := s.client.Fetch(ctx, query.NewKey("/api/courses"), &courses); err != nil {
		return d, fmt.Errorf("load courses: %w", err)
	}
	for _, c := range courses {
		if c.ID == courseID || c.Code == courseID {
			d.course = c
			break
		}
	}

	var students []model.User
	key := query.NewKey("/api/users").With(map[string]any{"role": string(model.RoleStudent)})
	if err := s.client.Fetch(ctx, key, &students); err != nil {
		return d, fmt.Errorf("load students: %w", err)
	}
	for _, u := range students {
		d.students[u.ID] = u
	}
	return d, nil
}

func (d sessionDetails) record(req BulkRequest, studentID int) model.SubmitAttendanceRequest {
	mark := req.Marks[studentID]
	status := mark.Status
	if status == "" {
		status = model.StatusAbsent
	}
	notes := mark.Notes
	recordedBy := req.RecordedBy
	body := model.SubmitAttendanceRequest{
		StudentID:   studentID,
		ClassID:     req.ClassID,
		Date:        req.Date,
		Status:      status,
		Subject:     d.course.Name,
		SubjectCode: d.course.Code,
		Department:  d.course.Department,
		FacultyID:   d.course.FacultyID,
		Notes:       &notes,
		RecordedBy:  &recordedBy,
	}
	if d.course.FacultyName != "" && d.course.FacultyName != "N/A" {
		body.Instructor = d.course.FacultyName
	}
	if u, found := d.students[studentID]; found {
		body.StudentName = u.Name
		body.RegistrationNumber = u.RegistrationNumber
	}
	return body
}
