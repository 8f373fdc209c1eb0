package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendboard/internal/attendance"
	"attendboard/internal/httpapi"
	"attendboard/internal/mockapi"
	"attendboard/internal/model"
	"attendboard/internal/seed"
	"attendboard/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SEED_FILE", "")
	t.Setenv("SEED_RANDOM", "")
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"call", "seed", "bulk"}, names)
}

func TestCallInProcess(t *testing.T) {
	out, err := execute(t, "call", "POST", "/api/login", "--data", `{"username":"admin","password":"wrong"}`)
	require.NoError(t, err)
	assert.Equal(t, "401\n{\n  \"message\": \"Invalid credentials\"\n}\n", out)

	_, err = execute(t, "call", "GET")
	assert.Error(t, err)
}

func TestSeedSummary(t *testing.T) {
	out, err := execute(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "random seed 42\n")
	assert.Contains(t, out, "attendance   140\n")
	assert.Contains(t, out, "enrollments  0\n")
}

func TestBulkAgainstRemote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tables, err := seed.Default(42)
	require.NoError(t, err)
	api := mockapi.New(store.NewMemory(tables, nil))
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.Deps{API: api}))
	defer srv.Close()

	_, err = execute(t, "call", "POST", "/api/enrollments", "--remote", srv.URL,
		"--data", `{"studentId":101,"courseId":"MCA103"}`)
	require.NoError(t, err)

	out, err := execute(t, "bulk", "--remote", srv.URL,
		"--course", "MCA103", "--class", "MCA103_Monday", "--date", "2025-02-10",
		"--recorded-by", "2", "--mark", "101=late:Bus")
	require.NoError(t, err)
	var res attendance.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Enrolled)
	assert.Len(t, res.Recorded, 1)

	out, err = execute(t, "call", "GET", "/api/attendance/class/MCA103_Monday/date/2025-02-10", "--remote", srv.URL)
	require.NoError(t, err)
	_, body, _ := strings.Cut(out, "\n")
	var recs []model.AttendanceRecord
	require.NoError(t, json.Unmarshal([]byte(body), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, model.StatusLate, recs[0].Status)
	assert.Equal(t, "Bus", recs[0].Notes)
}

func TestParseMarks(t *testing.T) {
	marks, err := parseMarks([]string{"101=present", "103=excused:Medical leave"})
	require.NoError(t, err)
	assert.Equal(t, map[int]attendance.Mark{
		101: {Status: model.StatusPresent},
		103: {Status: model.StatusExcused, Notes: "Medical leave"},
	}, marks)

	_, err = parseMarks([]string{"present"})
	assert.Error(t, err)
	_, err = parseMarks([]string{"x=present"})
	assert.Error(t, err)
}
