// Package stream follows a run's event log from a cursor and hands new events
// to a transport.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

const (
	DefaultTail     = 200
	MaxTail         = 500
	DefaultInterval = time.Second
	MinInterval     = 200 * time.Millisecond
	MaxInterval     = 5 * time.Second

	KeepAliveWindow = 15 * time.Second

	batchLimit = 200
)

// Cursor says where a stream starts. Without AfterID the newest Tail events
// are sent first; with it only events with a greater id are sent.
type Cursor struct {
	AfterID  *int64
	Tail     int
	Interval time.Duration
}

// Sink receives events in id order. KeepAlive is called after a quiet
// stretch of polls.
type Sink interface {
	Event(event domain.Event) error
	KeepAlive() error
}

type Poller struct {
	log    ports.EventLog
	logger *logging.Logger

	minInterval     time.Duration
	keepAliveWindow time.Duration
}

func NewPoller(log ports.EventLog, logger *logging.Logger) *Poller {
	if logger == nil {
		logger = logging.NopLogger()
	}

	return &Poller{log: log, logger: logger, minInterval: MinInterval, keepAliveWindow: KeepAliveWindow}
}

// Normalize clamps the tail to [0, MaxTail] and the interval to
// [MinInterval, MaxInterval].
func (p *Poller) Normalize(cursor Cursor) Cursor {
	cursor.Tail = max(0, min(cursor.Tail, MaxTail))
	if cursor.Interval <= 0 {
		cursor.Interval = DefaultInterval
	}
	cursor.Interval = max(p.minInterval, min(cursor.Interval, MaxInterval))

	return cursor
}

// KeepAliveEvery is the number of consecutive empty polls between keep-alives.
func KeepAliveEvery(interval time.Duration) int {
	return keepAliveEvery(KeepAliveWindow, interval)
}

func keepAliveEvery(window, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}

	return max(1, int(window/interval))
}

// Follow streams until ctx is done or the sink fails. A canceled ctx is the
// normal way a stream ends and is not reported as an error.
func (p *Poller) Follow(ctx context.Context, runID domain.RunID, cursor Cursor, sink Sink) error {
	cursor = p.Normalize(cursor)
	logger := p.logger.WithRun(string(runID))

	var last int64
	if cursor.AfterID != nil {
		last = *cursor.AfterID
	} else if cursor.Tail > 0 {
		recent, err := p.log.Tail(ctx, runID, cursor.Tail)
		if err != nil {
			return p.readErr(ctx, err)
		}
		if last, err = deliver(sink, recent, last); err != nil {
			return err
		}
	}

	every := keepAliveEvery(p.keepAliveWindow, cursor.Interval)
	ticker := time.NewTicker(cursor.Interval)
	defer ticker.Stop()

	idle := 0
	for {
		events, err := p.log.After(ctx, runID, last, batchLimit)
		if err != nil {
			return p.readErr(ctx, err)
		}

		if len(events) > 0 {
			idle = 0
			if last, err = deliver(sink, events, last); err != nil {
				return err
			}
		} else {
			idle++
			if idle%every == 0 {
				if err := sink.KeepAlive(); err != nil {
					return fmt.Errorf("send keep-alive: %w", err)
				}
				logger.Debug("stream keep-alive", "last_id", last)
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Poller) readErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}

	return fmt.Errorf("read run events: %w", err)
}

func deliver(sink Sink, events []domain.Event, last int64) (int64, error) {
	for _, event := range events {
		if err := sink.Event(event); err != nil {
			return last, fmt.Errorf("send event %d: %w", event.ID, err)
		}
		last = event.ID
	}

	return last, nil
}
