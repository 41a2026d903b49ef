// Package eventlog writes audit records for document mutations. Logging never
// fails the mutation that triggered it.
package eventlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	Source = "Content"

	EventInformation = "I"
	EventError       = "E"
)

// Action codes.
const (
	ActionCreate        = "CREATEDOC"
	ActionCreateCulture = "CREATECULTURE"
	ActionCreateLink    = "CREATELINK"
	ActionUpdate        = "UPDATEDOC"
	ActionDelete        = "DELETEDOC"
	ActionDeleteCulture = "DELETECULTURE"
	ActionChangeToLink  = "CHANGETOLINK"
	ActionMove          = "MOVEDOC"
	ActionOrder         = "CHANGEORDER"
)

// Subject is the document an entry is about.
type Subject interface {
	DisplayName() string
	AliasPath() string
	NodeID() uint64
	DocumentID() uint64
	SiteID() uint
	Culture() string
	// Diff describes the changed fields, one "name: old -> new" per line.
	Diff() string
}

// Entry is one requested log call.
type Entry struct {
	Action string
	// Template is formatted with the display name and alias path.
	Template    string
	IncludeDiff bool
	Subject     Subject
}

// Record is the audit record handed to sinks.
type Record struct {
	Source       string
	EventCode    string
	EventType    string
	Description  string
	DocumentName string
	AliasPath    string
	Culture      string
	NodeID       uint64
	DocumentID   uint64
	SiteID       uint
	UserID       uint64
	UserName     string
	IPAddress    string
	URL          string
	UserAgent    string
	Diff         string
	Time         time.Time
}

// Sink persists or forwards records.
type Sink interface {
	Write(ctx context.Context, r *Record) error
}

type Logger struct {
	sinks   []Sink
	enabled bool
	now     func() time.Time
}

func NewLogger(enabled bool, sinks ...Sink) *Logger {
	return &Logger{sinks: sinks, enabled: enabled, now: time.Now}
}

// Enabled reports whether the logger writes anything at all.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled && len(l.sinks) > 0
}

// Log builds the record for e and hands it to every sink. Sink failures are
// reported through logrus and swallowed.
func (l *Logger) Log(ctx context.Context, e Entry) {
	if !l.Enabled() || e.Subject == nil {
		return
	}

	r := l.record(ctx, e)
	for _, s := range l.sinks {
		if err := s.Write(ctx, r); err != nil {
			logrus.Errorf("event log sink failed for %s %s: %v", r.EventCode, r.AliasPath, err)
		}
	}
}

func (l *Logger) record(ctx context.Context, e Entry) *Record {
	actor := ActorFrom(ctx)
	req := RequestFrom(ctx)
	s := e.Subject

	description := e.Template
	if strings.Contains(description, "%") {
		description = fmt.Sprintf(description, s.DisplayName(), s.AliasPath())
	}

	r := &Record{
		Source:       Source,
		EventCode:    e.Action,
		EventType:    EventInformation,
		Description:  description,
		DocumentName: s.DisplayName(),
		AliasPath:    s.AliasPath(),
		Culture:      s.Culture(),
		NodeID:       s.NodeID(),
		DocumentID:   s.DocumentID(),
		SiteID:       s.SiteID(),
		UserID:       actor.ID,
		UserName:     actor.Name,
		IPAddress:    req.IPAddress,
		URL:          req.URL,
		UserAgent:    req.UserAgent,
		Time:         l.now(),
	}
	if e.IncludeDiff {
		r.Diff = s.Diff()
	}

	return r
}

var _ Sink = LogrusSink{}

// LogrusSink writes records as structured logrus entries.
type LogrusSink struct{}

func (LogrusSink) Write(ctx context.Context, r *Record) error {
	fields := logrus.Fields{
		"source":      r.Source,
		"event":       r.EventCode,
		"document":    r.DocumentName,
		"path":        r.AliasPath,
		"culture":     r.Culture,
		"node_id":     r.NodeID,
		"document_id": r.DocumentID,
		"site_id":     r.SiteID,
		"user_id":     r.UserID,
		"user":        r.UserName,
	}
	if r.IPAddress != "" {
		fields["ip"] = r.IPAddress
	}
	if r.URL != "" {
		fields["url"] = r.URL
	}
	if r.Diff != "" {
		fields["diff"] = r.Diff
	}

	logrus.WithFields(fields).Info(r.Description)
	return nil
}
