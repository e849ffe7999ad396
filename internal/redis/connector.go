package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectOptions configures the client and how long Connect keeps pinging.
type ConnectOptions struct {
	Addr         string // ex: "localhost:6379"
	User         string
	Password     string
	RedisDB      int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // budget for all ping attempts (ex: 5s)
	RetryInterval  time.Duration // first pause between pings, doubled after each failure
	MaxWait        time.Duration // cap on the pause
	PingTimeout    time.Duration // per ping
	WarnThreshold  int           // failed attempts logged at debug before switching to warn
}

func (o ConnectOptions) validate() error {
	var errs []error
	positive := []struct {
		name string
		d    time.Duration
	}{
		{"ConnectTimeout", o.ConnectTimeout},
		{"RetryInterval", o.RetryInterval},
		{"MaxWait", o.MaxWait},
		{"PingTimeout", o.PingTimeout},
	}
	for _, p := range positive {
		if p.d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", p.name, p.d))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

// backoff doubles the pause after every call up to max.
type backoff struct {
	next, max time.Duration
}

func (b *backoff) wait() time.Duration {
	d := b.next
	b.next = min(b.next*2, b.max)
	return d
}

// Connect builds a client for the state backend and pings it until it answers,
// ConnectTimeout elapses or ctx is canceled. The client is closed on failure.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	if err := opts.validate(); err != nil {
		log.Error("invalid redis options", logger.Error(err))
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := ping(ctx, client, opts, log.With(logger.String("addr", opts.Addr))); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func ping(parent context.Context, client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(parent, opts.ConnectTimeout)
	defer cancel()

	start := time.Now()
	b := backoff{next: opts.RetryInterval, max: opts.MaxWait}
	log.Debug("connecting to redis state backend", logger.Duration("timeout", opts.ConnectTimeout))

	for attempt := 1; ; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
		err := client.Ping(pingCtx).Err()
		pingCancel()

		if err == nil {
			log.Debug("connected to redis state backend",
				logger.Int("attempts", attempt),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		}

		pause := b.wait()
		fields := []any{attempt, pause, err}
		if attempt > opts.WarnThreshold {
			log.Warnf("redis ping %d failed, retrying in %v: %v", fields...)
		} else {
			log.Debugf("redis ping %d failed, retrying in %v: %v", fields...)
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(parent.Err(), context.Canceled) {
				return fmt.Errorf("redis connection to %s canceled: %w", opts.Addr, parent.Err())
			}
			log.Error("redis state backend unavailable",
				logger.Int("attempts", attempt),
				logger.Duration("timeout", opts.ConnectTimeout),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				opts.Addr, attempt, opts.ConnectTimeout, err)
		case <-timer.C:
		}
	}
}
