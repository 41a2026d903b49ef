package tree

// Status is the lifecycle state of a node instance.
type Status int

const (
	StatusNew Status = iota
	StatusUnchanged
	StatusChanged
	// StatusToBeDeleted marks a node for deletion by Service.Submit.
	StatusToBeDeleted
	// StatusWasDeleted is terminal.
	StatusWasDeleted
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusUnchanged:
		return "unchanged"
	case StatusChanged:
		return "changed"
	case StatusToBeDeleted:
		return "to-be-deleted"
	case StatusWasDeleted:
		return "was-deleted"
	default:
		return "unknown"
	}
}
