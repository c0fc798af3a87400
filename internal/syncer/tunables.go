package syncer

import "time"

// Defaults mirror the dashboard's historical timings.
const (
	DefaultQueueCapacity     = 10
	DefaultQueuePollInterval = 2 * time.Second
	DefaultCommandInterval   = 1 * time.Second
	DefaultCommandAttempts   = 30
	DefaultTerminalDwell     = 1500 * time.Millisecond
	DefaultPruneGrace        = 1200 * time.Millisecond
	DefaultRequestTimeout    = 10 * time.Second
)

// RetryPolicy drives the per-command confirmation poll: a fixed interval
// and a hard attempt bound. No backoff today; the shape leaves room for it.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: DefaultCommandInterval, MaxAttempts: DefaultCommandAttempts}
}

// Tunables collects every timing knob of the sync pipeline so the config
// layer can override them in one place.
type Tunables struct {
	QueueCapacity     int
	QueuePollInterval time.Duration
	CommandPoll       RetryPolicy
	TerminalDwell     time.Duration
	PruneGrace        time.Duration
	RequestTimeout    time.Duration
}

func DefaultTunables() Tunables {
	return Tunables{
		QueueCapacity:     DefaultQueueCapacity,
		QueuePollInterval: DefaultQueuePollInterval,
		CommandPoll:       DefaultRetryPolicy(),
		TerminalDwell:     DefaultTerminalDwell,
		PruneGrace:        DefaultPruneGrace,
		RequestTimeout:    DefaultRequestTimeout,
	}
}

// normalized fills zero values with defaults so a partially populated
// Tunables from config cannot stall the pipeline.
func (t Tunables) normalized() Tunables {
	d := DefaultTunables()
	if t.QueueCapacity <= 0 {
		t.QueueCapacity = d.QueueCapacity
	}
	if t.QueuePollInterval <= 0 {
		t.QueuePollInterval = d.QueuePollInterval
	}
	if t.CommandPoll.Interval <= 0 {
		t.CommandPoll.Interval = d.CommandPoll.Interval
	}
	if t.CommandPoll.MaxAttempts <= 0 {
		t.CommandPoll.MaxAttempts = d.CommandPoll.MaxAttempts
	}
	if t.TerminalDwell <= 0 {
		t.TerminalDwell = d.TerminalDwell
	}
	if t.PruneGrace <= 0 {
		t.PruneGrace = d.PruneGrace
	}
	if t.RequestTimeout <= 0 {
		t.RequestTimeout = d.RequestTimeout
	}
	return t
}
