package mockapi

import (
	"fmt"
	"time"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

// TimetableEntry is one weekly slot on a student's timetable.
type TimetableEntry struct {
	ID          string `json:"id"`
	SubjectName string `json:"subjectName"`
	SubjectCode string `json:"subjectCode"`
	Day         string `json:"day"`
	Time        string `json:"time"`
	Room        string `json:"room"`
	FacultyName string `json:"facultyName"`
}

// Event is an item on the campus events feed.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Notification is a message in a student's inbox.
type Notification struct {
	ID      string `json:"id"`
	From    string `json:"from,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Date    string `json:"date"`
	Read    bool   `json:"read"`
	Type    string `json:"type"`
}

var (
	weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	slots    = []string{"09:00 AM - 10:30 AM", "11:00 AM - 12:30 PM", "02:00 PM - 03:30 PM"}
)

// studentTimetable lays the semester's subjects out over the working week.
// Without both department and semester the timetable is empty.
func (d *Dispatcher) studentTimetable(tx *store.Tx, req *Request) *Response {
	dept := req.Query.Get("department")
	semester, hasSemester, valid := intParam(req.Query, "semester")
	if dept == "" || !hasSemester || !valid {
		return ok([]TimetableEntry{})
	}
	wanted := map[string]bool{}
	for _, id := range d.store.Seed().SubjectIDs(dept, semester) {
		wanted[id] = true
	}
	subjects := tx.Courses(func(c model.Course) bool { return wanted[c.ID] })

	out := make([]TimetableEntry, 0, len(subjects))
	for i, s := range subjects {
		day := i % len(weekdays)
		out = append(out, TimetableEntry{
			ID:          fmt.Sprintf("tt_%s_%d", s.ID, day),
			SubjectName: s.Name,
			SubjectCode: s.Code,
			Day:         weekdays[day],
			Time:        slots[i%len(slots)],
			Room:        fmt.Sprintf("%s-R%d", dept, 101+i),
			FacultyName: facultyName(tx, s.FacultyID),
		})
	}
	return ok(out)
}

func (d *Dispatcher) listEvents(_ *store.Tx, req *Request) *Response {
	dept := req.Query.Get("department")
	if dept == "" {
		dept = "General"
	}
	return ok([]Event{
		{ID: "evt1", Title: fmt.Sprintf("Dept. Seminar on AI (%s)", dept), Date: "2025-06-10", Time: "02:00 PM", Description: "Expert talk on latest AI trends.", Type: "Seminar"},
		{ID: "evt2", Title: "Sports Day Trials", Date: "2025-06-15", Description: "Trials for upcoming annual sports meet.", Type: "Sports"},
		{ID: "evt3", Title: "Tech Fest 'Innovate 2025'", Date: "2025-07-01", Description: "Annual technical festival.", Type: "Fest"},
	})
}

func (d *Dispatcher) studentNotifications(_ *store.Tx, _ *Request) *Response {
	day := func(m time.Month, dd int) string {
		return time.Date(2025, m, dd, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	}
	return ok([]Notification{
		{ID: "msg1", Title: "Library Due Reminder", Content: "Your borrowed book 'Advanced Java' is due tomorrow.", Date: day(time.May, 24), Type: "Reminder"},
		{ID: "msg2", Title: "Fee Payment Update", Content: "Semester fee payment portal is now open.", Date: day(time.May, 20), Read: true, Type: "Info"},
		{ID: "msg3", From: "Admin", Title: "Campus Closure Notice", Content: "Campus will be closed on Monday due to public holiday.", Date: day(time.May, 22), Type: "Notice"},
	})
}
