package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, time.October, 14, 9, 30, 0, 0, time.UTC)
}

func mustOpen(t *testing.T, r *Registry) *Session {
	t.Helper()
	s, err := r.Open()
	require.NoError(t, err)
	return s
}
