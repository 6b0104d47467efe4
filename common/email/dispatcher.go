package email

import (
	"context"
	"sync"
	"time"

	"github.com/glitzfusion/fusionx/common/logger"
)

// Dispatcher runs best-effort side effects off the request path. A failed
// job is logged and never reaches the caller.
type Dispatcher struct {
	wg      sync.WaitGroup
	timeout time.Duration
	log     *logger.Logger
}

func NewDispatcher(timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}
	return &Dispatcher{timeout: timeout, log: log.With("component", "dispatcher")}
}

// Go runs fn in the background with a fresh context bounded by the
// dispatcher timeout, so it outlives the request that queued it.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.With("job", name).Error("job panicked: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.With("job", name).WithError(err).Warn("background job failed")
		}
	}()
}

// Wait blocks until every queued job has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
