package tree

import (
	"context"

	"github.com/sirupsen/logrus"
)

// EventType names the mutation a guard is asked about.
type EventType string

const (
	EventInsert        EventType = "insert"
	EventInsertCulture EventType = "insert-culture"
	EventInsertLink    EventType = "insert-link"
	EventUpdate        EventType = "update"
	EventMove          EventType = "move"
	EventDelete        EventType = "delete"
	EventChangeToLink  EventType = "change-to-link"
	EventOrder         EventType = "order"
)

// Event describes a mutation about to be written.
type Event struct {
	Type EventType
	Node *Node
	// Parent is the target parent of inserts, links and moves.
	Parent *Node
	// Culture is the culture being added or removed.
	Culture string
	// TargetNodeID is the original of ChangeToLink.
	TargetNodeID uint64
	// Order is the requested position of an order change.
	Order int
	// AllCultures is set for deletes that remove every culture version.
	AllCultures bool
}

// Guard is consulted before a mutation enters its transaction. Returning
// false cancels the mutation with the given reason; nothing is written and
// the node keeps its status.
type Guard func(ctx context.Context, e *Event) (bool, string)

// proceed runs the guards in registration order. The first veto wins.
func (s *Service) proceed(ctx context.Context, e *Event) bool {
	for _, g := range s.guards {
		ok, reason := g(ctx, e)
		if ok {
			continue
		}
		if e.Node != nil {
			e.Node.cancelReason = reason
		}
		logrus.Infof("%s of %s cancelled: %s", e.Type, describe(e.Node), reason)
		return false
	}

	if e.Node != nil {
		e.Node.cancelReason = ""
	}
	return true
}

func describe(n *Node) string {
	if n == nil {
		return "<nil>"
	}
	if n.Structural.AliasPath != "" {
		return n.Structural.AliasPath
	}
	return n.Culture.Name
}
