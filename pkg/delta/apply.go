package delta

import (
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/semdelta/pkg/lcs"
	"github.com/walteh/semdelta/pkg/semtok"
)

// Diff computes the compacted edit script that turns old into new. Both
// arrays must hold whole records.
func Diff(old, new []uint32, opts ...lcs.Option) ([]Edit, error) {
	oldRecords, err := semtok.ToRecords(old)
	if err != nil {
		return nil, errors.Errorf("grouping previous tokens: %w", err)
	}
	newRecords, err := semtok.ToRecords(new)
	if err != nil {
		return nil, errors.Errorf("grouping current tokens: %w", err)
	}

	return Compact(newRecords, lcs.Changes(lcs.Align(oldRecords, newRecords, opts...))), nil
}

// Apply performs an edit script against the previous stream the way a client
// does: every Start refers to old, and edits must not overlap.
func Apply(old []uint32, edits []Edit) ([]uint32, error) {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]uint32, 0, len(old))
	pos := 0
	for i, e := range sorted {
		start, end := int(e.Start), int(e.Start)+int(e.DeleteCount)
		if end > len(old) {
			return nil, errors.Errorf("edit %d [%d,%d) is out of range for %d values", i, start, end, len(old))
		}
		if start < pos {
			return nil, errors.Errorf("edit %d starting at %d overlaps the previous edit ending at %d", i, start, pos)
		}
		out = append(out, old[pos:start]...)
		out = append(out, e.Data...)
		pos = end
	}
	out = append(out, old[pos:]...)

	return out, nil
}
