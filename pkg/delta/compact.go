package delta

import (
	"github.com/walteh/semdelta/pkg/lcs"
	"github.com/walteh/semdelta/pkg/semtok"
)

// Edit is a wire-level semantic tokens edit: starting at value offset Start of
// the previous stream, remove DeleteCount values and insert Data.
type Edit struct {
	Start       uint32   `json:"start"`
	DeleteCount uint32   `json:"deleteCount"`
	Data        []uint32 `json:"data"`
}

type slotKind int

const (
	slotInsert slotKind = iota + 1
	slotDelete
	slotUpdate
)

// slot is one position of the compacted script. An update replaces old[oldIndex]
// with new[newIndex]; an insert places new[newIndex] before old[oldIndex].
type slot struct {
	kind     slotKind
	oldIndex int
	newIndex int
	// adjacent is set when no matched token separates this slot from the previous one.
	adjacent bool
}

// classify turns raw insert/delete edits into slots. Within a gap (a run of
// edits with no match between them) the k-th delete and the k-th insert form
// an update; whatever is left over stays an insert or a delete.
func classify(edits []lcs.SequenceEdit) []slot {
	slots := make([]slot, 0, len(edits))

	var deletes, inserts []lcs.SequenceEdit
	flush := func() {
		first := true
		paired := min(len(deletes), len(inserts))
		for k := 0; k < max(len(deletes), len(inserts)); k++ {
			s := slot{adjacent: !first}
			switch {
			case k < paired:
				s.kind, s.oldIndex, s.newIndex = slotUpdate, deletes[k].OldIndex, inserts[k].NewIndex
			case k < len(deletes):
				s.kind, s.oldIndex, s.newIndex = slotDelete, deletes[k].OldIndex, deletes[k].NewIndex
			default:
				s.kind, s.oldIndex, s.newIndex = slotInsert, inserts[k].OldIndex, inserts[k].NewIndex
			}
			slots = append(slots, s)
			first = false
		}
		deletes, inserts = deletes[:0], inserts[:0]
	}

	prev := -1
	for _, e := range edits {
		if e.Kind == lcs.Match {
			continue
		}
		// every insert or delete advances OldIndex+NewIndex by exactly one, a match by two
		if prev >= 0 && e.OldIndex+e.NewIndex != prev+1 {
			flush()
		}
		prev = e.OldIndex + e.NewIndex

		if e.Kind == lcs.Delete {
			deletes = append(deletes, e)
		} else {
			inserts = append(inserts, e)
		}
	}
	flush()

	return slots
}

// run is the state carried by the compaction fold.
type run struct {
	kind        slotKind
	start       int
	deleteCount int
	data        []uint32
}

func (r *run) absorb(s slot, newRecords semtok.Stream) {
	if s.kind == slotUpdate || s.kind == slotDelete {
		r.deleteCount += semtok.RecordWidth
	}
	if s.kind == slotUpdate || s.kind == slotInsert {
		r.data = newRecords[s.newIndex].AppendFlat(r.data)
	}
}

// accepts reports whether s may extend the run, and the run's kind afterwards.
// An update run may keep absorbing updates; the first insert or delete locks it
// to that kind. Insert and delete runs only absorb their own kind.
func (r *run) accepts(s slot) (slotKind, bool) {
	if !s.adjacent {
		return 0, false
	}
	switch r.kind {
	case slotUpdate:
		return s.kind, true
	case s.kind:
		return r.kind, true
	default:
		return 0, false
	}
}

func (r *run) edit() Edit {
	data := r.data
	if data == nil {
		data = []uint32{}
	}
	return Edit{
		Start:       uint32(r.start * semtok.RecordWidth),
		DeleteCount: uint32(r.deleteCount),
		Data:        data,
	}
}

// Compact merges an alignment into the fewest edits a left-to-right greedy pass
// can produce. newRecords is the stream the alignment's NewIndex values refer to.
// Starts are offsets into the previous stream, as clients apply edits against it.
func Compact(newRecords semtok.Stream, edits []lcs.SequenceEdit) []Edit {
	slots := classify(edits)
	out := make([]Edit, 0, len(slots))

	var cur *run
	for _, s := range slots {
		if cur != nil {
			if kind, ok := cur.accepts(s); ok {
				cur.kind = kind
				cur.absorb(s, newRecords)
				continue
			}
			out = append(out, cur.edit())
		}
		cur = &run{kind: s.kind, start: s.oldIndex}
		cur.absorb(s, newRecords)
	}
	if cur != nil {
		out = append(out, cur.edit())
	}

	return out
}
