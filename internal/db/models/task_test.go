package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskStatus(t *testing.T) {
	st, err := ParseTaskStatus("assigned")
	require.NoError(t, err)
	assert.Equal(t, TaskAssigned, st)

	_, err = ParseTaskStatus("ARCHIVED")
	assert.Error(t, err)
}

func TestParseReviewStatus(t *testing.T) {
	st, err := ParseReviewStatus("Accepted")
	require.NoError(t, err)
	assert.Equal(t, SubmissionAccepted, st)

	_, err = ParseReviewStatus("PENDING")
	assert.Error(t, err, "PENDING is not a review outcome")
}

func TestInt64List_ScanValue(t *testing.T) {
	v, err := Int64List(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var l Int64List
	require.NoError(t, l.Scan([]byte(`[3,5]`)))
	assert.Equal(t, Int64List{3, 5}, l)

	require.NoError(t, l.Scan(nil))
	assert.Empty(t, l)

	assert.Error(t, l.Scan(42))
}

func TestTask_IsAssignedTo(t *testing.T) {
	task := &Task{AssignedUserIDs: Int64List{1, 4}}
	assert.True(t, task.IsAssignedTo(4))
	assert.False(t, task.IsAssignedTo(2))
}
