package syncer

import (
	"github.com/rs/zerolog"
)

// RefreshFunc reloads one page's data after a successful operation.
// Handlers must be idempotent: the pipeline guarantees at most one fire
// per session, but pages may also refresh on their own schedule.
type RefreshFunc func()

// RefreshRegistry fans a completed operation type out to the refresh
// handlers the other dashboard pages registered at construction time.
type RefreshRegistry struct {
	handlers map[OperationType][]RefreshFunc
	log      zerolog.Logger
}

func NewRefreshRegistry(log zerolog.Logger) *RefreshRegistry {
	return &RefreshRegistry{
		handlers: make(map[OperationType][]RefreshFunc),
		log:      log,
	}
}

// Subscribe registers a handler for an operation type. Not safe to call
// concurrently with Fire; registration happens during wiring, before the
// pipeline runs.
func (r *RefreshRegistry) Subscribe(op OperationType, fn RefreshFunc) {
	if fn == nil {
		return
	}
	r.handlers[op] = append(r.handlers[op], fn)
}

// Fire invokes every handler for the operation type. Handlers are
// fire-and-forget: a panic is recovered and logged, never propagated
// into the sync pipeline.
func (r *RefreshRegistry) Fire(op OperationType) {
	for _, fn := range r.handlers[op] {
		r.call(op, fn)
	}
}

func (r *RefreshRegistry) call(op OperationType, fn RefreshFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("operation", string(op)).Interface("panic", rec).Msg("refresh handler panicked")
		}
	}()
	fn()
}
