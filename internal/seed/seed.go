// Package seed holds the static dataset the in-memory store is built from.
package seed

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"attendboard/internal/model"
)

//go:embed seed.yaml
var embedded []byte

// AcademicYear is the year whose semester plans drive the timetable.
const AcademicYear = "2024-2025"

// Department describes a department and its semester subject plans.
type Department struct {
	ID             string                  `yaml:"id"`
	Name           string                  `yaml:"name"`
	TotalSemesters int                     `yaml:"totalSemesters"`
	AcademicYears  map[string]AcademicPlan `yaml:"academicYears"`
}

// AcademicPlan maps semester numbers to their subjects for one year.
type AcademicPlan struct {
	Semesters map[int]SemesterPlan `yaml:"semesters"`
}

// SemesterPlan lists the subjects taught in one semester.
type SemesterPlan struct {
	SubjectIDs []string `yaml:"subjectIds"`
}

// Tables is the complete seed dataset.
type Tables struct {
	Users       []model.User             `yaml:"users"`
	Courses     []model.Course           `yaml:"subjects"`
	Departments map[string]Department    `yaml:"departments"`
	Attendance  []model.AttendanceRecord `yaml:"-"`
}

// Default parses the embedded dataset and generates attendance with the
// given random seed.
func Default(randomSeed uint64) (*Tables, error) {
	return Parse(embedded, randomSeed)
}

// FromFile parses a dataset from disk in the same format as the embedded one.
func FromFile(path string, randomSeed uint64) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data, randomSeed)
}

// Parse decodes a YAML dataset and fills in the synthetic attendance.
func Parse(data []byte, randomSeed uint64) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := t.check(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(randomSeed, randomSeed^0x9e3779b97f4a7c15))
	t.Attendance = Generate(t.Users, t.Courses, GenerateOptions{Rand: rng})
	return &t, nil
}

func (t *Tables) check() error {
	ids := make(map[int]bool, len(t.Users))
	for _, u := range t.Users {
		if ids[u.ID] {
			return fmt.Errorf("seed: duplicate user id %d", u.ID)
		}
		ids[u.ID] = true
	}
	courses := make(map[string]bool, len(t.Courses))
	for _, c := range t.Courses {
		if courses[c.ID] {
			return fmt.Errorf("seed: duplicate course id %q", c.ID)
		}
		courses[c.ID] = true
	}
	return nil
}

// SubjectIDs returns the subjects planned for a department semester in the
// current academic year.
func (t *Tables) SubjectIDs(department string, semester int) []string {
	dept, ok := t.Departments[department]
	if !ok {
		return nil
	}
	return dept.AcademicYears[AcademicYear].Semesters[semester].SubjectIDs
}

// GenerateOptions tunes the synthetic attendance generator.
type GenerateOptions struct {
	PerPair int
	Start   time.Time
	Cutoff  time.Time
	Rand    *rand.Rand
}

var timeSlots = [2]string{"09:00 AM - 10:30 AM", "11:00 AM - 12:30 PM"}

// Generate produces PerPair records for every student and every subject of
// the student's department and current semester. Dates start at Start and
// drift forward; anything after Cutoff is dropped. Three in four records are
// "present", the rest are drawn uniformly from all statuses.
func Generate(users []model.User, courses []model.Course, opts GenerateOptions) []model.AttendanceRecord {
	if opts.PerPair <= 0 {
		opts.PerPair = 5
	}
	if opts.Start.IsZero() {
		opts.Start = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	}
	if opts.Cutoff.IsZero() {
		opts.Cutoff = time.Date(2025, time.May, 25, 0, 0, 0, 0, time.UTC)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}

	faculty := make(map[int]string)
	for _, u := range users {
		if u.Role == model.RoleFaculty {
			faculty[u.ID] = u.Name
		}
	}

	var out []model.AttendanceRecord
	for _, st := range users {
		if st.Role != model.RoleStudent {
			continue
		}
		for _, sub := range courses {
			if sub.Department != st.Department || sub.Semester != st.Semester {
				continue
			}
			instructor := "N/A"
			if sub.FacultyID != nil {
				if name, ok := faculty[*sub.FacultyID]; ok {
					instructor = name
				}
			}
			for i := 0; i < opts.PerPair; i++ {
				day := opts.Start.AddDate(0, 0, i*2+opts.Rand.IntN(5))
				if day.After(opts.Cutoff) {
					continue
				}
				status := model.Statuses[opts.Rand.IntN(len(model.Statuses))]
				if opts.Rand.Float64() < 0.75 {
					status = model.StatusPresent
				}
				notes := ""
				if status == model.StatusExcused {
					notes = "Prior permission"
				}
				out = append(out, model.AttendanceRecord{
					ID:                 fmt.Sprintf("%s_%s_%d", sub.Code, st.RegistrationNumber, i),
					Date:               day.Format(model.DateLayout),
					Subject:            sub.Name,
					SubjectCode:        sub.Code,
					StudentID:          st.ID,
					RegistrationNumber: st.RegistrationNumber,
					StudentName:        st.Name,
					Status:             status,
					Instructor:         instructor,
					FacultyID:          sub.Clone().FacultyID,
					Time:               timeSlots[i%2],
					Duration:           1.5,
					Notes:              notes,
					ClassID:            fmt.Sprintf("%s_%d", sub.ID, int(day.Weekday())),
					Department:         st.Department,
				})
			}
		}
	}
	return out
}
