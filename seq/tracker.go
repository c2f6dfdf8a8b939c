// Package seq classifies 32-bit hardware sequence numbers into in-order
// arrivals, drops, and reorders, with correct behavior across the u32 wrap
// boundary. All arithmetic stays masked to 32 bits; a naive implementation
// would report ~4 billion phantom drops every time the counter wraps.
package seq

const (
	u32Max     = 0xFFFFFFFF
	u32Half    = 0x80000000
	u32Modulus = 1 << 32
)

// Add returns a+b wrapped in u32 space.
func Add(a, b uint32) uint32 {
	return a + b
}

// Distance returns the signed number of steps from one sequence number to
// another in u32 space. Positive means to is ahead of from, negative means it
// is behind, regardless of where the wrap boundary falls between them.
func Distance(from, to uint32) int64 {
	diff := uint64(to-from) & u32Max
	if diff >= u32Half {
		return int64(diff) - u32Modulus
	}
	return int64(diff)
}

// DropKind distinguishes plain forward gaps from gaps that straddle the
// counter wrap.
type DropKind string

const (
	DropGap  DropKind = "gap"
	DropWrap DropKind = "wrap"
)

// DropEvent records a detected forward gap in one core's sequence stream.
type DropEvent struct {
	CoreID       uint16
	ExpectedSeq  uint32
	ActualSeq    uint32
	DroppedCount uint32
	Timestamp    uint64
	Kind         DropKind
}

// ReorderEvent records a stale arrival: a sequence number behind the
// expected one. Reorders are bookkeeping, never counted as drops.
type ReorderEvent struct {
	CoreID      uint16
	ExpectedSeq uint32
	ActualSeq   uint32
	Timestamp   uint64
}

// ResetEvent records an explicit sequence reset signaled by a RESET record.
type ResetEvent struct {
	CoreID      uint16
	OldExpected uint32
	NewSeq      uint32
	Timestamp   uint64
}

// Summary is the tracker's aggregate view for snapshots.
type Summary struct {
	TotalDropped  uint64
	TotalReorders uint64
	TotalResets   uint64
	DropEvents    int
	CoresTracked  int
}

// Tracker follows per-core sequence numbers. It is not safe for concurrent
// use; each ingestion path owns its own tracker.
type Tracker struct {
	expected map[uint16]uint32
	maxSeen  map[uint16]uint32

	TotalDropped  uint64
	TotalReorders uint64
	TotalResets   uint64

	DropEvents    []DropEvent
	ReorderEvents []ReorderEvent
	ResetEvents   []ResetEvent
}

func NewTracker() *Tracker {
	return &Tracker{
		expected: make(map[uint16]uint32),
		maxSeen:  make(map[uint16]uint32),
	}
}

// Check classifies one observation. It returns a non-nil DropEvent only when
// a forward gap was detected. The first observation for a core initializes
// tracking and never produces an event.
func (t *Tracker) Check(coreID uint16, seqNo uint32, timestamp uint64) *DropEvent {
	expected, seen := t.expected[coreID]
	if !seen {
		t.expected[coreID] = Add(seqNo, 1)
		t.maxSeen[coreID] = seqNo
		return nil
	}

	dist := Distance(expected, seqNo)
	switch {
	case dist == 0:
		t.expected[coreID] = Add(seqNo, 1)
		t.updateMaxSeen(coreID, seqNo)
		return nil

	case dist > 0:
		kind := DropGap
		if expected > 0xFFFF0000 && seqNo < 0x10000 {
			kind = DropWrap
		}
		ev := DropEvent{
			CoreID:       coreID,
			ExpectedSeq:  expected,
			ActualSeq:    seqNo,
			DroppedCount: uint32(dist),
			Timestamp:    timestamp,
			Kind:         kind,
		}
		t.DropEvents = append(t.DropEvents, ev)
		t.TotalDropped += uint64(dist)
		t.expected[coreID] = Add(seqNo, 1)
		t.updateMaxSeen(coreID, seqNo)
		return &t.DropEvents[len(t.DropEvents)-1]

	default:
		// Stale arrival. Leave expected untouched so the live stream
		// keeps tracking from where it actually is.
		t.TotalReorders++
		t.ReorderEvents = append(t.ReorderEvents, ReorderEvent{
			CoreID:      coreID,
			ExpectedSeq: expected,
			ActualSeq:   seqNo,
			Timestamp:   timestamp,
		})
		return nil
	}
}

// HandleReset reinitializes a core's tracking after an explicit RESET record.
// The jump is never counted as a drop.
func (t *Tracker) HandleReset(coreID uint16, newSeq uint32, timestamp uint64) {
	old := t.expected[coreID]
	t.TotalResets++
	t.ResetEvents = append(t.ResetEvents, ResetEvent{
		CoreID:      coreID,
		OldExpected: old,
		NewSeq:      newSeq,
		Timestamp:   timestamp,
	})
	t.expected[coreID] = Add(newSeq, 1)
	t.maxSeen[coreID] = newSeq
}

// Expected returns the next sequence number expected for a core.
func (t *Tracker) Expected(coreID uint16) (uint32, bool) {
	v, ok := t.expected[coreID]
	return v, ok
}

// MaxSeen returns the highest sequence number observed for a core, in the
// modular ordering sense.
func (t *Tracker) MaxSeen(coreID uint16) (uint32, bool) {
	v, ok := t.maxSeen[coreID]
	return v, ok
}

func (t *Tracker) updateMaxSeen(coreID uint16, seqNo uint32) {
	if Distance(t.maxSeen[coreID], seqNo) > 0 {
		t.maxSeen[coreID] = seqNo
	}
}

func (t *Tracker) Summary() Summary {
	return Summary{
		TotalDropped:  t.TotalDropped,
		TotalReorders: t.TotalReorders,
		TotalResets:   t.TotalResets,
		DropEvents:    len(t.DropEvents),
		CoresTracked:  len(t.expected),
	}
}
