package mockapi

import (
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

const noFaculty = "N/A"

// intParam reads an optional integer query parameter. present is false when
// the key is absent; valid is false when it is present but not a number.
func intParam(q url.Values, key string) (v int, present, valid bool) {
	raw := q.Get(key)
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.Atoi(raw)
	return v, true, err == nil
}

func facultyName(tx *store.Tx, id *int) string {
	if id == nil {
		return noFaculty
	}
	if name, ok := tx.UserName(*id, model.RoleFaculty); ok {
		return name
	}
	return noFaculty
}

func (d *Dispatcher) listCourses(tx *store.Tx, req *Request) *Response {
	department := req.Query.Get("department")
	semester, hasSemester, semOK := intParam(req.Query, "semester")
	facultyID, hasFaculty, facOK := intParam(req.Query, "facultyId")
	if !semOK || !facOK {
		return ok([]model.CourseView{})
	}

	var taught map[string]bool
	if hasFaculty {
		taught = map[string]bool{}
		for _, f := range tx.Users(func(u model.User) bool { return u.ID == facultyID && u.Role == model.RoleFaculty }) {
			for _, id := range f.SubjectIDs {
				taught[id] = true
			}
		}
	}

	courses := tx.Courses(func(c model.Course) bool {
		if department != "" && c.Department != department {
			return false
		}
		if hasSemester && c.Semester != semester {
			return false
		}
		return !hasFaculty || taught[c.ID]
	})
	out := make([]model.CourseView, 0, len(courses))
	for _, c := range courses {
		out = append(out, model.CourseView{Course: c, FacultyName: facultyName(tx, c.FacultyID)})
	}
	return ok(out)
}

func (d *Dispatcher) createCourse(tx *store.Tx, req *Request) *Response {
	var body model.CreateCourseRequest
	if err := decode(req.Body, &body); err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	credits := body.Credits
	if credits == 0 {
		credits = 4
	}
	c := tx.AddCourse(model.Course{
		Name:        body.Name,
		Code:        body.Code,
		Credits:     credits,
		Semester:    body.Semester,
		Department:  body.Department,
		FacultyID:   body.FacultyID,
		Description: body.Description,
	})
	d.log.Info("added course", zap.String("id", c.ID), zap.String("code", c.Code))
	return created(c)
}
