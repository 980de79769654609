package delivery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedDeliverer struct {
	ok     map[string]bool
	calls  []string
	cancel context.CancelFunc
	// cancelAfter cancels the run once this many messages were attempted.
	cancelAfter int
}

func (d *scriptedDeliverer) Deliver(_ context.Context, recipient, _ string) bool {
	d.calls = append(d.calls, recipient)
	if d.cancel != nil && len(d.calls) == d.cancelAfter {
		d.cancel()
	}
	return d.ok[recipient]
}

type failingLog struct{}

func (failingLog) Append(Entry) error { return errors.New("disk full") }

func drainedEntries() []Entry {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{Timestamp: ts, UserID: "U1", Text: "第 5 桌"},
		{Timestamp: ts, UserID: "U2****99", Text: "第 6 桌", Redacted: true},
		{Timestamp: ts, UserID: "U3", Text: "第 7 桌"},
		{Timestamp: ts, UserID: "U4", Text: "第 8 桌"},
	}
}

func TestRedeliver(t *testing.T) {
	d := &scriptedDeliverer{ok: map[string]bool{"U1": true, "U4": true}}
	log := NewFileLog(filepath.Join(t.TempDir(), "dl.jsonl"))

	sum, err := Redeliver(context.Background(), d, log, drainedEntries())
	require.NoError(t, err)

	assert.Equal(t, Summary{Delivered: 2, Failed: 1, Skipped: 1}, sum)
	assert.Equal(t, []string{"U1", "U3", "U4"}, d.calls)
}

func TestRedeliver_CancelledRunRequeuesTheRest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d := &scriptedDeliverer{ok: map[string]bool{"U1": true}, cancel: cancel, cancelAfter: 1}
	path := filepath.Join(t.TempDir(), "dl.jsonl")

	sum, err := Redeliver(ctx, d, NewFileLog(path), drainedEntries())
	require.NoError(t, err)

	assert.Equal(t, []string{"U1"}, d.calls)
	assert.Equal(t, Summary{Delivered: 1, Skipped: 1, Requeued: 2}, sum)

	back, err := ReadEntries(path)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "U3", back[0].UserID)
	assert.Equal(t, "第 8 桌", back[1].Text)
}

func TestRedeliver_RequeueFailureIsReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := Redeliver(ctx, &scriptedDeliverer{}, failingLog{}, drainedEntries())
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 0, sum.Requeued)
}
