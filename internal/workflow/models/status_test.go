package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "internhub/pkg/domain-errors"
)

func TestStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusUnderReview, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusShortlisted, false},
		{StatusPending, StatusApproved, false},
		{StatusUnderReview, StatusShortlisted, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusPending, false},
		{StatusShortlisted, StatusInterviewScheduled, true},
		{StatusShortlisted, StatusRejected, true},
		{StatusShortlisted, StatusApproved, false},
		{StatusInterviewScheduled, StatusApproved, true},
		{StatusInterviewScheduled, StatusRejected, true},
		{StatusInterviewScheduled, StatusShortlisted, false},
		{StatusApproved, StatusRejected, false},
		{StatusRejected, StatusPending, false},
		{StatusRejected, StatusUnderReview, false},
	}

	for _, tc := range cases {
		got := tc.from.CanTransitionTo(tc.to)
		assert.Equal(t, tc.allowed, got, "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusEveryStateCanReachRejected(t *testing.T) {
	for _, s := range AllStatuses {
		if s.IsTerminal() {
			continue
		}
		assert.True(t, s.CanTransitionTo(StatusRejected), "%s should allow rejection", s)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInterviewScheduled.IsTerminal())

	assert.Empty(t, StatusApproved.AllowedTransitions())
	assert.Empty(t, StatusRejected.AllowedTransitions())
}

func TestAllowedTransitionsReturnsCopy(t *testing.T) {
	first := StatusPending.AllowedTransitions()
	require.NotEmpty(t, first)
	first[0] = StatusApproved

	second := StatusPending.AllowedTransitions()
	assert.Equal(t, StatusUnderReview, second[0], "mutating the returned slice must not affect the table")
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("under_review")
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, s)

	_, err = ParseStatus("archived")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))

	_, err = ParseStatus("")
	require.Error(t, err)
}

func TestStatusPresentation(t *testing.T) {
	for _, s := range AllStatuses {
		assert.NotEmpty(t, s.Label(), "label for %s", s)
		assert.NotEmpty(t, s.ColorTag(), "color for %s", s)
	}
	assert.Equal(t, "Interview scheduled", StatusInterviewScheduled.Label())
	assert.Equal(t, "green", StatusApproved.ColorTag())
	assert.Equal(t, "red", StatusRejected.ColorTag())
}
