package journal

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esencia-retail/backoffice-cli/internal/event"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournalRecordAndRecent(t *testing.T) {
	j := openTestJournal(t)

	j.Record(EventLogin, "", "u-1", "00aa11bb22cc33dd")
	j.Record(EventLogout, "", "u-1", "00aa11bb22cc33dd")

	entries, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, EventLogout, entries[0].Event)
	assert.Equal(t, EventLogin, entries[1].Event)
	assert.Equal(t, "u-1", entries[1].UserID)
	assert.Equal(t, "00aa11bb22cc33dd", entries[1].TokenFP)
	assert.WithinDuration(t, time.Now().UTC(), entries[0].At, time.Minute)
}

func TestJournalAttachRecordsBusEvents(t *testing.T) {
	j := openTestJournal(t)
	bus := event.NewBus()

	unsub := j.Attach(bus)
	defer unsub()

	bus.Publish(event.LoggedOut{Reason: "closed due to inactivity"})
	bus.Publish(event.SessionWarning{Remaining: 4 * time.Minute})
	bus.Publish(event.NetworkError{Message: "ignored"})

	entries, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2, "auxiliary events are not journaled")

	assert.Equal(t, EventSessionWarning, entries[0].Event)
	assert.Equal(t, "4m0s", entries[0].Reason)
	assert.Equal(t, EventForcedLogout, entries[1].Event)
	assert.Equal(t, "closed due to inactivity", entries[1].Reason)
}

func TestJournalRecentLimit(t *testing.T) {
	j := openTestJournal(t)

	for range 5 {
		j.Record(EventLogin, "", "u-1", "")
	}

	entries, err := j.Recent(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
