package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/glitzfusion/fusionx/common/logger"
)

// Expirer releases bookings that stayed unpaid past the cutoff and returns
// how many it released.
type Expirer interface {
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int, error)
}

// PendingBookingExpiryScheduler periodically drops unpaid bookings older
// than ttl so their reserved capacity returns to the event.
type PendingBookingExpiryScheduler struct {
	expirer  Expirer
	ttl      time.Duration
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *logger.Logger

	sched gocron.Scheduler
}

func NewPendingBookingExpiryScheduler(expirer Expirer, ttl, interval time.Duration, log *logger.Logger) *PendingBookingExpiryScheduler {
	if log == nil {
		log = logger.Default()
	}
	return &PendingBookingExpiryScheduler{
		expirer:  expirer,
		ttl:      ttl,
		interval: interval,
		timeout:  interval,
		now:      time.Now,
		log:      log.With("component", "scheduler"),
	}
}

// Start schedules the job. A zero ttl leaves the scheduler off.
func (s *PendingBookingExpiryScheduler) Start() error {
	if s.ttl <= 0 {
		s.log.Info("[SCHEDULER] pending booking expiry disabled (BOOKING_PENDING_TTL=0)")
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("expiry interval must be positive")
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.RunOnce),
		gocron.WithName("pending-booking-expiry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule pending expiry: %w", err)
	}

	s.sched = sched
	sched.Start()
	s.log.Info("[SCHEDULER] pending booking expiry started (every %v, ttl %v)", s.interval, s.ttl)
	return nil
}

// Stop waits for a running pass to finish.
func (s *PendingBookingExpiryScheduler) Stop() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched = nil
	s.log.Info("[SCHEDULER] pending booking expiry stopped")
	return err
}

// RunOnce performs a single expiry pass.
func (s *PendingBookingExpiryScheduler) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	cutoff := s.now().Add(-s.ttl)
	released, err := s.expirer.ExpireStalePending(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Error("[SCHEDULER] pending booking expiry failed")
		return
	}
	if released > 0 {
		s.log.With("released", released).Info("[SCHEDULER] released %d stale pending booking(s)", released)
	}
}
