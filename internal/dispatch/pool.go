package dispatch

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/markussekhon/twitch-soundbot/internal/metrics"
)

const (
	// DefaultWorkers is the number of concurrent handler invocations.
	DefaultWorkers = 4
	// DefaultQueueSize bounds how many redemptions may wait for a worker.
	DefaultQueueSize = 64
)

// Handler consumes one redemption event. Failures are the handler's own
// responsibility; nothing is reported back to the dispatch loop.
type Handler func(RedemptionEvent)

// Pool is a fixed-size worker pool draining a bounded queue of redemption
// events. Overflow policy is drop-newest: when the queue is full the incoming
// event is dropped with a warning, so a redemption burst can never stall the
// frame reader or spawn unbounded work.
type Pool struct {
	queue   chan RedemptionEvent
	handler Handler
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// NewPool starts workers goroutines draining a queue of the given size.
func NewPool(workers, queueSize int, handler Handler) *Pool {
	p := &Pool{
		queue:   make(chan RedemptionEvent, queueSize),
		handler: handler,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for ev := range p.queue {
		p.handler(ev)
	}
}

// Dispatch enqueues an event for handling. Never blocks: if the queue is
// full the event is dropped.
func (p *Pool) Dispatch(ev RedemptionEvent) {
	select {
	case p.queue <- ev:
		metrics.RedemptionsDispatched.Inc()
	default:
		p.dropped.Add(1)
		metrics.RedemptionsDropped.Inc()
		slog.Warn("Dispatch queue full, dropping redemption",
			"user_name", ev.UserName, "reward_title", ev.RewardTitle)
	}
}

// Dropped returns how many events have been dropped on overflow.
func (p *Pool) Dropped() int64 {
	return p.dropped.Load()
}

// Stop closes the queue and waits for in-flight handlers to finish.
func (p *Pool) Stop() {
	close(p.queue)
	p.wg.Wait()
}
