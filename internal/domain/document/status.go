package document

// Status is the ingestion lifecycle state of a document.
type Status string

const (
	// StatusPending is the status of a freshly constructed document.
	// The ingestion flow moves to StatusProcessing before the first write,
	// so Pending is never persisted today.
	StatusPending Status = "Pending"
	// StatusProcessing means extraction, embedding or indexing is underway.
	StatusProcessing Status = "Processing"
	// StatusIndexed means every chunk is embedded, indexed and persisted.
	StatusIndexed Status = "Indexed"
	// StatusFailed means the ingestion attempt aborted.
	StatusFailed Status = "Failed"
)

// ParseStatus converts a stored string into a Status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusIndexed, StatusFailed:
		return Status(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusIndexed || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotonic.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusIndexed || next == StatusFailed
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }
