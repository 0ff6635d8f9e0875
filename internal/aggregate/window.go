package aggregate

import (
	"fmt"
	"time"
)

// Window is a half-open aggregation interval (Start, End]. A fill stamped
// exactly at Start belongs to the previous window; a fill stamped exactly at
// End belongs to this one. Consecutive windows sharing a boundary therefore
// never double-count.
type Window struct {
	Start time.Time
	End   time.Time
}

// Empty reports whether the window covers no time. Empty and inverted
// windows are a no-op for the aggregators, never an error, so the cursor
// protocol can call in with cursor >= windowEnd safely.
func (w Window) Empty() bool {
	return !w.End.After(w.Start)
}

// Contains reports whether ts falls inside the window: start-exclusive,
// end-inclusive.
func (w Window) Contains(ts time.Time) bool {
	return ts.After(w.Start) && !ts.After(w.End)
}

func (w Window) String() string {
	return fmt.Sprintf("(%s, %s]", w.Start.UTC().Format(time.RFC3339Nano), w.End.UTC().Format(time.RFC3339Nano))
}
