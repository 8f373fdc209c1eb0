package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("sick").Valid())
	assert.False(t, Status("").Valid())
}

func TestUserCloneIsDeep(t *testing.T) {
	img := "a.png"
	u := User{ID: 2, ProfileImage: &img, SubjectIDs: []string{"MCA103"}}
	c := u.Clone()
	c.SubjectIDs[0] = "X"
	*c.ProfileImage = "b.png"

	assert.Equal(t, "MCA103", u.SubjectIDs[0])
	assert.Equal(t, "a.png", *u.ProfileImage)
}

func TestValidateMessages(t *testing.T) {
	err := Validate(CreateEnrollmentRequest{StudentID: 101})
	require.Error(t, err)
	assert.Equal(t, "courseId is required", err.Error())

	assert.NoError(t, Validate(LoginRequest{Username: "admin"}))

	err = Validate(SubmitAttendanceRequest{StudentID: 101, ClassID: "MCA103_1", Date: "2025-02-01", Status: "sick"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status must be one of")

	err = Validate(SubmitAttendanceRequest{StudentID: 101, ClassID: "MCA103_1", Date: "01/02/2025", Status: StatusLate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date failed datetime validation")

	assert.NoError(t, Validate(CreateEnrollmentRequest{StudentID: 101, CourseID: "MCA101"}))
}

func TestSubmitAttendanceApplyKeepsUnsetFields(t *testing.T) {
	fac := 2
	rec := AttendanceRecord{
		ID:          "MCA103_24VV1F0001_0",
		Subject:     "Java Programming",
		SubjectCode: "MCA103",
		StudentID:   101,
		Status:      StatusPresent,
		FacultyID:   &fac,
		Notes:       "on time",
		Duration:    1.5,
		ClassID:     "MCA103_3",
		Date:        "2025-01-15",
	}
	empty := ""
	by := 2
	SubmitAttendanceRequest{
		StudentID:  101,
		ClassID:    "MCA103_3",
		Date:       "2025-01-15",
		Status:     StatusAbsent,
		Notes:      &empty,
		RecordedBy: &by,
	}.Apply(&rec)

	assert.Equal(t, StatusAbsent, rec.Status)
	assert.Equal(t, "Java Programming", rec.Subject)
	assert.Equal(t, 1.5, rec.Duration)
	assert.Equal(t, "", rec.Notes)
	require.NotNil(t, rec.RecordedBy)
	assert.Equal(t, 2, *rec.RecordedBy)
	assert.Equal(t, "MCA103_24VV1F0001_0", rec.ID)
}
