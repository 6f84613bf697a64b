package reservations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"flightbook/internal/notifications"
	"flightbook/internal/shared/config"
	"flightbook/internal/shared/constants"
	"flightbook/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease lets one instance run a sweep tick at a time. Correctness does not
// depend on it: every expiry is a conditional update.
type Lease interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// RedisLease is a SET NX PX lock with an owner token.
type RedisLease struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *logger.Logger
}

var releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLease(client *redis.Client, ttl time.Duration) *RedisLease {
	return &RedisLease{
		client: client,
		key:    constants.LOCK_KEY_RESERVATION_SWEEPER,
		ttl:    ttl,
		logger: logger.GetDefault(),
	}
}

func (l *RedisLease) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// Run after the tick even if ctx was cancelled.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseLeaseScript.Run(releaseCtx, l.client, []string{l.key}, token).Err(); err != nil {
			// The lease still lapses after its ttl.
			l.logger.WarnContext(ctx, "Failed to release sweeper lease",
				slog.String("key", l.key),
				slog.String("error", err.Error()),
			)
		}
	}
	return release, true, nil
}

// JobProcessor runs the reservation expiry sweep in the background
type JobProcessor struct {
	service   Service
	publisher notifications.Publisher
	lease     Lease
	config    *JobConfig
	logger    *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	SweepInterval time.Duration
	BatchSize     int
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		SweepInterval: 30 * time.Second,
		BatchSize:     100,
	}
}

// JobConfigFromBooking reads the sweep settings of the booking section.
func JobConfigFromBooking(cfg config.BookingConfig) *JobConfig {
	jobConfig := DefaultJobConfig()
	if cfg.SweepInterval > 0 {
		jobConfig.SweepInterval = cfg.SweepInterval
	}
	if cfg.SweepBatchSize > 0 {
		jobConfig.BatchSize = cfg.SweepBatchSize
	}
	return jobConfig
}

// NewJobProcessor creates a new job processor. lease and publisher may be nil.
func NewJobProcessor(service Service, publisher notifications.Publisher, lease Lease, config *JobConfig) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	if publisher == nil {
		publisher = notifications.NoopPublisher{}
	}

	return &JobProcessor{
		service:   service,
		publisher: publisher,
		lease:     lease,
		config:    config,
		logger:    logger.GetDefault(),
		done:      make(chan struct{}),
	}
}

// Start starts the sweep loop
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.wg.Add(1)
	go jp.startExpirySweeper(ctx)

	jp.logger.Info("Reservation sweeper started",
		slog.Duration("interval", jp.config.SweepInterval),
		slog.Int("batch_size", jp.config.BatchSize),
	)
}

// Stop stops the sweep loop and waits for a running tick to finish
func (jp *JobProcessor) Stop() {
	jp.stopOnce.Do(func() { close(jp.done) })
	jp.wg.Wait()
	jp.logger.Info("Reservation sweeper stopped")
}

func (jp *JobProcessor) startExpirySweeper(ctx context.Context) {
	defer jp.wg.Done()

	ticker := time.NewTicker(jp.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := jp.RunOnce(ctx, 0); err != nil {
				jp.logger.ErrorWithContext(ctx, "Reservation sweep failed", err, nil)
			}
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs one sweep of at most limit reservations if this instance
// holds the lease. limit <= 0 uses the configured batch size. It returns the
// number of reservations it expired.
func (jp *JobProcessor) RunOnce(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = jp.config.BatchSize
	}
	if jp.lease != nil {
		release, ok, err := jp.lease.Acquire(ctx)
		if err != nil {
			// Sweeps are idempotent, so proceed without the lease.
			jp.logger.WarnContext(ctx, "Sweeper lease unavailable, sweeping anyway", slog.String("error", err.Error()))
		} else if !ok {
			return 0, nil
		} else {
			defer release()
		}
	}

	expired, err := jp.service.SweepExpired(ctx, limit)
	for i := range expired {
		jp.publishExpired(ctx, &expired[i])
	}

	if len(expired) > 0 {
		jp.logger.InfoContext(ctx, "Expired reservations swept", slog.Int("expired", len(expired)))
	}
	return len(expired), err
}

func (jp *JobProcessor) publishExpired(ctx context.Context, reservation *Reservation) {
	builder := notifications.NewEventBuilder(notifications.EventTypeReservationExpired, reservation.FlightID).
		WithRequest(reservation.RequestID).
		WithSeats(reservation.SeatIDs...)
	if reservation.UserID != nil {
		builder = builder.WithUser(*reservation.UserID)
	}

	if err := jp.publisher.Publish(ctx, builder.Build()); err != nil {
		jp.logger.WarnContext(ctx, "Failed to publish reservation expiry",
			slog.String("request_id", reservation.RequestID),
			slog.String("error", err.Error()),
		)
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	status := "running"
	select {
	case <-jp.done:
		status = "stopped"
	default:
	}

	return map[string]interface{}{
		"sweep_interval": jp.config.SweepInterval.String(),
		"batch_size":     jp.config.BatchSize,
		"lease":          jp.lease != nil,
		"status":         status,
	}
}
