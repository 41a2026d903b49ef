package eventlog

import (
	"context"

	"github.com/emrgen/doctree/internal/compress"
	"github.com/emrgen/doctree/internal/model"
	"github.com/emrgen/doctree/internal/store"
)

var _ Sink = (*StoreSink)(nil)

// StoreSink persists records to the event_log table with the diff compressed.
type StoreSink struct {
	store    store.EventLogStore
	compress compress.Compress
}

func NewStoreSink(s store.EventLogStore, c compress.Compress) *StoreSink {
	if c == nil {
		c = compress.NewNop()
	}
	return &StoreSink{store: s, compress: c}
}

func (s *StoreSink) Write(ctx context.Context, r *Record) error {
	event := &model.EventLog{
		Source:       r.Source,
		EventCode:    r.EventCode,
		EventType:    r.EventType,
		Description:  r.Description,
		DocumentName: r.DocumentName,
		AliasPath:    r.AliasPath,
		NodeID:       r.NodeID,
		DocumentID:   r.DocumentID,
		SiteID:       r.SiteID,
		UserID:       r.UserID,
		UserName:     r.UserName,
		IPAddress:    r.IPAddress,
		URL:          r.URL,
		UserAgent:    r.UserAgent,
		CreatedAt:    r.Time,
	}

	if r.Diff != "" {
		diff, err := s.compress.Encode([]byte(r.Diff))
		if err != nil {
			return err
		}
		event.Diff = diff
		event.Compression = s.compress.Name()
	}

	return s.store.CreateEventLog(ctx, event)
}

// DecodeDiff returns the plain diff text of a persisted record.
func DecodeDiff(event *model.EventLog) (string, error) {
	if len(event.Diff) == 0 {
		return "", nil
	}

	c, err := compress.New(event.Compression)
	if err != nil {
		return "", err
	}

	data, err := c.Decode(event.Diff)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
