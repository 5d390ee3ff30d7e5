package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"reelsmith/internal/logging"
)

// Monitor owns the detached poller goroutines. Pollers outlive the request
// that started them, so they run under the monitor's root context rather
// than the caller's; Stop cancels that context and waits for every poller
// to drain.
type Monitor struct {
	poller *Poller
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	active  int
	stopped bool
}

// NewMonitor constructs a Monitor around a configured poller.
func NewMonitor(poller *Poller, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		poller: poller,
		logger: logging.NewComponentLogger(logger, "render-monitor"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches a detached poller for an accepted render job. It returns
// false when the monitor has already been stopped.
func (m *Monitor) Start(job PollJob) bool {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	m.active++
	m.wg.Add(1)
	m.mu.Unlock()

	m.logger.Info("tracking render job",
		logging.String(logging.FieldJobID, job.JobID),
		logging.String(logging.FieldSpecID, job.SpecID))

	go func() {
		defer func() {
			m.mu.Lock()
			m.active--
			m.mu.Unlock()
			m.wg.Done()
		}()
		m.poller.Run(m.ctx, job)
	}()
	return true
}

// Active reports how many pollers are currently running.
func (m *Monitor) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Stop cancels all pollers and blocks until they exit. Further Start calls
// are refused.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

// Wait blocks until all currently running pollers finish without cancelling
// them. Used by the one-shot CLI path that must observe the outcome.
func (m *Monitor) Wait() {
	m.wg.Wait()
}
