package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/emrgen/doctree/internal/compress"
	"github.com/emrgen/doctree/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subject struct{}

func (subject) DisplayName() string { return "Products" }
func (subject) AliasPath() string   { return "/Products" }
func (subject) NodeID() uint64      { return 5 }
func (subject) DocumentID() uint64  { return 8 }
func (subject) SiteID() uint        { return 1 }
func (subject) Culture() string     { return "en-US" }
func (subject) Diff() string        { return "Name: Product -> Products" }

type recordingSink struct {
	records []*Record
	err     error
}

func (s *recordingSink) Write(ctx context.Context, r *Record) error {
	s.records = append(s.records, r)
	return s.err
}

func TestLogger_Log(t *testing.T) {
	sink := &recordingSink{}
	l := NewLogger(true, sink)

	ctx := WithActor(context.Background(), Actor{ID: 42, Name: "editor"})
	ctx = WithRequest(ctx, Request{IPAddress: "10.0.0.1", URL: "/admin/content"})

	l.Log(ctx, Entry{Action: ActionUpdate, Template: "Document %s (%s) was updated.", IncludeDiff: true, Subject: subject{}})

	require.Len(t, sink.records, 1)
	r := sink.records[0]
	assert.Equal(t, ActionUpdate, r.EventCode)
	assert.Equal(t, "Document Products (/Products) was updated.", r.Description)
	assert.Equal(t, uint64(42), r.UserID)
	assert.Equal(t, "editor", r.UserName)
	assert.Equal(t, "10.0.0.1", r.IPAddress)
	assert.Equal(t, "Name: Product -> Products", r.Diff)
	assert.Equal(t, uint(1), r.SiteID)
}

func TestLogger_WithoutDiffAndActor(t *testing.T) {
	sink := &recordingSink{}
	NewLogger(true, sink).Log(context.Background(), Entry{Action: ActionCreate, Template: "created", Subject: subject{}})

	require.Len(t, sink.records, 1)
	assert.Empty(t, sink.records[0].Diff)
	assert.Equal(t, "public", sink.records[0].UserName)
	assert.Equal(t, "created", sink.records[0].Description)
}

func TestLogger_Disabled(t *testing.T) {
	sink := &recordingSink{}
	NewLogger(false, sink).Log(context.Background(), Entry{Action: ActionDelete, Subject: subject{}})
	assert.Empty(t, sink.records)

	var nilLogger *Logger
	assert.False(t, nilLogger.Enabled())
	nilLogger.Log(context.Background(), Entry{Action: ActionDelete, Subject: subject{}})
}

func TestLogger_SinkFailureSwallowed(t *testing.T) {
	failing := &recordingSink{err: errors.New("disk full")}
	second := &recordingSink{}

	assert.NotPanics(t, func() {
		NewLogger(true, failing, second).Log(context.Background(), Entry{Action: ActionCreate, Subject: subject{}})
	})
	assert.Len(t, second.records, 1)
}

func TestStoreSink(t *testing.T) {
	s := tester.Store(t)
	ctx := context.Background()

	l := NewLogger(true, NewStoreSink(s, compress.NewGZip()))
	l.Log(ctx, Entry{Action: ActionUpdate, Template: "updated", IncludeDiff: true, Subject: subject{}})

	events, err := s.ListEventLogs(ctx, 5, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "gzip", events[0].Compression)
	assert.Equal(t, "/Products", events[0].AliasPath)

	diff, err := DecodeDiff(events[0])
	require.NoError(t, err)
	assert.Equal(t, "Name: Product -> Products", diff)
}
