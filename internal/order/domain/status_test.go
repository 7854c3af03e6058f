package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{StatusNew, StatusAccepted, StatusPreparing, StatusCompleted, StatusCancelled}

func TestTransitionTableIsExhaustive(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusNew, StatusAccepted}:        true,
		{StatusNew, StatusCancelled}:       true,
		{StatusAccepted, StatusPreparing}:  true,
		{StatusAccepted, StatusCancelled}:  true,
		{StatusPreparing, StatusCompleted}: true,
		{StatusPreparing, StatusCancelled}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			got := from.CanTransitionTo(to)
			assert.Equal(t, legal[[2]Status{from, to}], got, "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusNew.Terminal())
	assert.False(t, StatusAccepted.Terminal())
	assert.False(t, StatusPreparing.Terminal())
}

func TestCompletedAdmitsNothing(t *testing.T) {
	for _, to := range allStatuses {
		assert.False(t, StatusCompleted.CanTransitionTo(to), "completed -> %s", to)
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("shipped")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}
