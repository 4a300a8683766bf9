package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

// Processor accumulates items from concurrent producers and ships them in
// chunks of at most MaxBatchSize from a single background goroutine. Normal
// ticks send one chunk; stopping drains everything that is left.
type Processor[T any] struct {
	ctx        context.Context
	sendCtx    context.Context
	sender     telemetry.Sender[T]
	config     telemetry.Config
	queue      []T
	stopped    bool
	queueMutex sync.Mutex
	stopCtx    context.CancelFunc
	startOnce  sync.Once
	stopOnce   sync.Once
	wg         sync.WaitGroup
	stats      *Stats
}

func NewProcessor[T any](ctx context.Context, sender telemetry.Sender[T], config telemetry.Config) *Processor[T] {
	nCtx, cancel := context.WithCancel(ctx)
	return &Processor[T]{
		ctx:     nCtx,
		sendCtx: context.WithoutCancel(ctx),
		sender:  sender,
		config:  config.WithDefaults(),
		stopCtx: cancel,
		stats:   &Stats{},
	}
}

// Add appends item to the queue. It never blocks on the network. Items added
// after Stop are dropped.
func (bp *Processor[T]) Add(item T) {
	bp.queueMutex.Lock()
	defer bp.queueMutex.Unlock()

	if bp.stopped {
		bp.stats.IncEventsDropped()
		return
	}
	bp.queue = append(bp.queue, item)
	bp.stats.IncEventsQueued()
}

func (bp *Processor[T]) Start() {
	bp.startOnce.Do(func() {
		bp.wg.Add(1)
		go bp.run()
	})
}

// Stop asks the batcher to finish and blocks until every item queued before
// the call has been handed to the sender. Calling Stop more than once, or on
// a processor that was never started, is fine.
func (bp *Processor[T]) Stop() {
	bp.stopOnce.Do(func() {
		bp.queueMutex.Lock()
		bp.stopped = true
		bp.queueMutex.Unlock()

		bp.startOnce.Do(func() {})
		bp.stopCtx()
		bp.wg.Wait()

		// The batcher also exits when the parent context ends, which can
		// leave items behind that were added afterwards.
		bp.flush(true)
	})
}

// Len reports the number of items waiting to be sent.
func (bp *Processor[T]) Len() int {
	bp.queueMutex.Lock()
	defer bp.queueMutex.Unlock()
	return len(bp.queue)
}

func (bp *Processor[T]) Stats() StatsStamp {
	stamp := bp.stats.GetStatsStamp()
	stamp.QueueLength = bp.Len()
	return stamp
}

func (bp *Processor[T]) run() {
	defer bp.wg.Done()

	ticker := time.NewTicker(bp.config.BatchInterval)
	defer ticker.Stop()

	for {
		bp.flush(false)

		select {
		case <-ticker.C:
		case <-bp.ctx.Done():
			bp.flush(true)
			return
		}
	}
}

func (bp *Processor[T]) flush(force bool) {
	for {
		batch := bp.take()
		if len(batch) == 0 {
			return
		}
		bp.send(batch)
		if !force {
			return
		}
	}
}

// take removes up to MaxBatchSize items from the front of the queue.
func (bp *Processor[T]) take() []T {
	bp.queueMutex.Lock()
	defer bp.queueMutex.Unlock()

	n := min(len(bp.queue), bp.config.MaxBatchSize)
	if n == 0 {
		return nil
	}

	batch := make([]T, n)
	copy(batch, bp.queue[:n])

	remaining := copy(bp.queue, bp.queue[n:])
	clear(bp.queue[remaining:])
	bp.queue = bp.queue[:remaining]

	return batch
}

func (bp *Processor[T]) send(batch []T) {
	defer func() {
		if r := recover(); r != nil {
			bp.fail(fmt.Errorf("sender panicked on batch of %d: %v", len(batch), r))
		}
	}()

	if err := bp.sender.SendBatch(bp.sendCtx, batch); err != nil {
		bp.fail(fmt.Errorf("failed to send batch of %d: %w", len(batch), err))
		return
	}
	bp.stats.AddBatchSent(len(batch))
}

func (bp *Processor[T]) fail(err error) {
	bp.stats.IncBatchesFailed()
	if bp.config.OnError != nil {
		bp.config.OnError(err)
	}
}
