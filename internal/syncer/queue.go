package syncer

import "time"

// Status is the lifecycle state of a queued command. It only moves
// forward: pending -> completed or pending -> failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QueueEntry is one in-flight command awaiting agent confirmation.
type QueueEntry struct {
	ID            string
	Description   string
	Status        Status
	ResultMessage string
	CreatedAt     time.Time
}

// CommandQueue is a bounded ordered log of in-flight commands keyed by
// the backend correlation id. Newest entries sit at the front. It is a
// plain data structure with no locking; the Manager serializes access.
type CommandQueue struct {
	capacity int
	entries  []*QueueEntry
	now      func() time.Time
}

func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &CommandQueue{capacity: capacity, now: time.Now}
}

// Enqueue inserts a new pending entry at the front. Duplicate ids are
// ignored. When the queue overflows, one entry near the tail is evicted,
// preferring a terminal entry over a pending one so in-flight commands
// are not silently discarded.
func (q *CommandQueue) Enqueue(id, description string) bool {
	if id == "" {
		return false
	}
	if q.find(id) != nil {
		return false
	}
	entry := &QueueEntry{
		ID:          id,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   q.now(),
	}
	q.entries = append([]*QueueEntry{entry}, q.entries...)
	if len(q.entries) > q.capacity {
		q.evict()
	}
	return true
}

// evict removes the oldest terminal entry, falling back to the oldest
// entry outright when every entry is still pending.
func (q *CommandQueue) evict() {
	victim := len(q.entries) - 1
	for i := len(q.entries) - 1; i >= 0; i-- {
		if q.entries[i].Status.Terminal() {
			victim = i
			break
		}
	}
	q.entries = append(q.entries[:victim], q.entries[victim+1:]...)
}

// UpdateStatus moves a pending entry to a terminal status. Updates
// against an unknown id or an already-terminal entry are no-ops, which
// makes repeated confirmations from independent pollers harmless.
func (q *CommandQueue) UpdateStatus(id string, status Status, message string) bool {
	entry := q.find(id)
	if entry == nil || entry.Status != StatusPending {
		return false
	}
	if !status.Terminal() {
		return false
	}
	entry.Status = status
	entry.ResultMessage = message
	return true
}

// PendingCount returns the number of entries still awaiting confirmation.
func (q *CommandQueue) PendingCount() int {
	n := 0
	for _, e := range q.entries {
		if e.Status == StatusPending {
			n++
		}
	}
	return n
}

// Prune drops all terminal entries and reports how many were removed.
func (q *CommandQueue) Prune() int {
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if e.Status.Terminal() {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}

// Get returns a copy of the entry with the given id.
func (q *CommandQueue) Get(id string) (QueueEntry, bool) {
	if e := q.find(id); e != nil {
		return *e, true
	}
	return QueueEntry{}, false
}

// Len returns the total number of entries, pending or terminal.
func (q *CommandQueue) Len() int { return len(q.entries) }

// Snapshot returns entries in display order, newest first.
func (q *CommandQueue) Snapshot() []QueueEntry {
	out := make([]QueueEntry, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	return out
}

func (q *CommandQueue) find(id string) *QueueEntry {
	for _, e := range q.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}
