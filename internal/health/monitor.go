// Package health polls the backend liveness endpoint and tracks whether the
// service is reachable and which inference engine it reports.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jask/scandraw/internal/api"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 4 * time.Second

	// UnknownEngine is shown when no engine label has been reported.
	UnknownEngine = "Unknown"
)

type Status string

const (
	StatusChecking Status = "checking"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

// Connectivity is the last applied probe outcome.
type Connectivity struct {
	Status Status
	Engine string
}

// Prober performs one liveness request.
type Prober interface {
	Health(ctx context.Context) (api.HealthResponse, error)
}

type Option func(*Monitor)

func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithTimeout bounds each probe. Values at or above the interval are
// clamped to half the interval.
func WithTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// Monitor probes on a fixed interval until stopped. Probe results are
// applied in sequence order: a completion older than the last applied one is
// discarded.
type Monitor struct {
	prober   Prober
	clock    clockwork.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	state     Connectivity
	issued    uint64
	applied   uint64
	listeners map[uint64]func(Connectivity)
	nextID    uint64

	// notifyMu orders listener dispatch by sequence.
	notifyMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

func NewMonitor(p Prober, opts ...Option) *Monitor {
	m := &Monitor{
		prober:    p,
		clock:     clockwork.NewRealClock(),
		interval:  DefaultInterval,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
		state:     Connectivity{Status: StatusChecking},
		listeners: make(map[uint64]func(Connectivity)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.timeout >= m.interval {
		m.timeout = m.interval / 2
	}
	return m
}

// Connectivity returns the current state.
func (m *Monitor) Connectivity() Connectivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnChange registers fn to receive applied states in sequence order. A state
// superseded before its dispatch is skipped. fn runs on the probe goroutine
// and must not block.
func (m *Monitor) OnChange(fn func(Connectivity)) (unsubscribe func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Start probes immediately and then once per interval until Stop is called
// or ctx ends. Calling Start while running returns the existing stop func.
func (m *Monitor) Start(ctx context.Context) (stop func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return m.Stop
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	go m.run(runCtx, done)
	return m.Stop
}

// Stop cancels the loop and any in-flight probe and waits for them to exit.
// It is safe to call more than once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(done)
	}()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	m.launch(ctx, &wg)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.launch(ctx, &wg)
		}
	}
}

// launch runs one probe on its own goroutine so a slow backend never delays
// the next tick.
func (m *Monitor) launch(ctx context.Context, wg *sync.WaitGroup) {
	m.mu.Lock()
	m.issued++
	seq := m.issued
	m.mu.Unlock()

	wg.Add(1)
	go func() {
		defer wg.Done()
		probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()
		res, err := m.prober.Health(probeCtx)
		if ctx.Err() != nil {
			// stopped while in flight
			return
		}
		m.apply(seq, res, err)
	}()
}

// apply records a probe outcome unless a newer probe already landed.
func (m *Monitor) apply(seq uint64, res api.HealthResponse, err error) {
	m.mu.Lock()
	if applied := m.applied; seq <= applied {
		m.mu.Unlock()
		m.logger.Debug("health: discarding stale probe", "seq", seq, "applied", applied)
		return
	}
	m.applied = seq

	prev := m.state
	next := Connectivity{Status: StatusOffline, Engine: UnknownEngine}
	if err == nil {
		next = Connectivity{Status: StatusOnline, Engine: prev.Engine}
		if res.Engine != "" {
			next.Engine = res.Engine
		}
	}
	m.state = next
	m.mu.Unlock()

	if prev.Status != next.Status {
		if err != nil {
			m.logger.Warn("health: backend offline", "seq", seq, "error", err)
		} else {
			m.logger.Info("health: backend online", "seq", seq, "engine", next.Engine)
		}
	}
	m.notify(seq, next)
}

func (m *Monitor) notify(seq uint64, c Connectivity) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if seq != m.applied {
		m.mu.Unlock()
		return
	}
	listeners := make([]func(Connectivity), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
}
