package forecast

import (
	"time"

	"github.com/aouyang1/go-seqcast/table"
)

// Anchor optionally fixes the calendar position of a forecast. The zero value is absent and
// produces no date labels, leaving the caller to supply a time axis.
type Anchor struct {
	split   time.Time
	present bool
}

// Absent returns an anchor that produces no date labels
func Absent() Anchor {
	return Anchor{}
}

// At returns an anchor on the given split date
func At(split time.Time) Anchor {
	return Anchor{split: split, present: !split.IsZero()}
}

// DatesFrom anchors on split only when both the split date and its source table are supplied.
// The table is not read; labels derive from the split date alone.
func DatesFrom(split time.Time, tbl *table.Table) Anchor {
	if tbl == nil {
		return Absent()
	}
	return At(split)
}

// Present reports whether the anchor produces date labels
func (a Anchor) Present() bool {
	return a.present
}

// Split returns the anchoring date and whether it is present
func (a Anchor) Split() (time.Time, bool) {
	return a.split, a.present
}

// Labels returns steps x length dates where label [i][j] is split + j days + length*i days. It
// returns nil for an absent anchor.
func (a Anchor) Labels(steps, length int) [][]time.Time {
	if !a.present {
		return nil
	}
	labels := make([][]time.Time, steps)
	for i := 0; i < steps; i++ {
		labels[i] = make([]time.Time, length)
		for j := 0; j < length; j++ {
			labels[i][j] = table.AddDays(a.split, j+length*i)
		}
	}
	return labels
}
