// Package poller watches a withdrawal until it reaches a terminal status.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/api"
)

// DefaultInterval is the delay between two status fetches
const DefaultInterval = 12 * time.Second

// ErrAlreadyRunning is returned by Start while a previous run is active
var ErrAlreadyRunning = errors.New("poller already running")

// FetchFunc loads the current state of the watched withdrawal
type FetchFunc func(ctx context.Context) (*api.Withdrawal, error)

// Options configures a Poller. All hooks are optional and run on the polling
// goroutine with the run context, which Stop cancels. A hook that blocks must
// give up once that context is done or Stop will wait for it.
type Options struct {
	Interval   time.Duration
	OnUpdate   func(context.Context, *api.Withdrawal)
	OnError    func(context.Context, error)
	OnTerminal func(context.Context, *api.Withdrawal)
}

// Poller fetches immediately on Start and then on every interval until the
// withdrawal settles, Stop is called or the context is cancelled.
type Poller struct {
	fetch  FetchFunc
	opts   Options
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a stopped Poller
func New(fetch FetchFunc, opts Options, logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	done := make(chan struct{})
	close(done)
	return &Poller{
		fetch:  fetch,
		opts:   opts,
		logger: logger.With().Str("component", "poller").Logger(),
		done:   done,
	}
}

// IsTerminal reports whether a withdrawal status will not change anymore
func IsTerminal(status string) bool {
	switch status {
	case api.WithdrawalCompleted, api.WithdrawalRejected, api.WithdrawalFailed:
		return true
	default:
		return false
	}
}

// Start launches the polling goroutine
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx, p.done)
	return nil
}

// Stop cancels polling and waits for the goroutine to exit
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-done
}

// Done is closed once the current run has ended
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Running reports whether a run is active
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	// Fetch immediately, then on every tick
	if p.poll(ctx) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("Polling cancelled")
			return
		case <-ticker.C:
			if p.poll(ctx) {
				return
			}
		}
	}
}

// poll runs one fetch and reports whether polling should end
func (p *Poller) poll(ctx context.Context) bool {
	w, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		p.logger.Warn().Err(err).Msg("Failed to fetch withdrawal status")
		if p.opts.OnError != nil {
			p.opts.OnError(ctx, err)
		}
		return false
	}
	if w == nil {
		return false
	}

	if p.opts.OnUpdate != nil {
		p.opts.OnUpdate(ctx, w)
	}

	if IsTerminal(w.Status) {
		p.logger.Info().
			Str("withdrawal_id", w.ID).
			Str("status", w.Status).
			Msg("Withdrawal settled")
		if p.opts.OnTerminal != nil {
			p.opts.OnTerminal(ctx, w)
		}
		return true
	}
	return false
}
