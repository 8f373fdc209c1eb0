package mockapi

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"attendboard/internal/model"
	"attendboard/internal/store"
)

func (d *Dispatcher) login(tx *store.Tx, req *Request) *Response {
	var body model.LoginRequest
	if err := decode(req.Body, &body); err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	users := tx.Users(func(u model.User) bool {
		return strings.EqualFold(u.Username, body.Username) && u.Password == body.Password
	})
	if len(users) == 0 {
		return fail(http.StatusUnauthorized, "Invalid credentials")
	}
	return ok(users[0])
}

func (d *Dispatcher) listUsers(tx *store.Tx, req *Request) *Response {
	role := req.Query.Get("role")
	department := req.Query.Get("department")
	return ok(tx.Users(func(u model.User) bool {
		if role != "" && string(u.Role) != role {
			return false
		}
		return department == "" || u.Department == department
	}))
}

func (d *Dispatcher) getUser(tx *store.Tx, req *Request) *Response {
	id, err := strconv.Atoi(req.Params["id"])
	if err != nil {
		return fail(http.StatusNotFound, "User not found")
	}
	u, err := tx.User(id)
	if err != nil {
		return fail(http.StatusNotFound, "User not found")
	}
	return ok(u)
}

func (d *Dispatcher) createUser(tx *store.Tx, req *Request) *Response {
	var body model.CreateUserRequest
	if err := decode(req.Body, &body); err != nil {
		return fail(http.StatusBadRequest, err.Error())
	}
	u := tx.AddUser(model.User{
		Username:           body.Username,
		Password:           body.Password,
		Name:               body.Name,
		Email:              body.Email,
		Role:               body.Role,
		ProfileImage:       body.ProfileImage,
		Department:         body.Department,
		RegistrationNumber: body.RegistrationNumber,
		Semester:           body.Semester,
		SubjectIDs:         body.SubjectIDs,
		Type:               body.Type,
	})
	d.log.Info("added user", zap.Int("id", u.ID), zap.String("role", string(u.Role)))
	return created(u)
}
