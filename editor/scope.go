package editor

// Scope selects how broadly an edit or delete of one occurrence applies
// to its series. A non-recurring event always behaves as ScopeAll.
type Scope int

const (
	// ScopeThis touches only the targeted occurrence.
	ScopeThis Scope = iota
	// ScopeFuture touches the targeted occurrence and everything after it.
	ScopeFuture
	// ScopeAll touches the whole series.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeThis:
		return "this"
	case ScopeFuture:
		return "future"
	case ScopeAll:
		return "all"
	default:
		return "unknown"
	}
}
