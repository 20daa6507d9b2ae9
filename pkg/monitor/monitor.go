package monitor

import (
	"fmt"
	"time"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/dialect"
	log "github.com/sirupsen/logrus"
)

const (
	LinkUnknown = 0x01 // No telemetry received yet
	LinkActive  = 0x02 // Telemetry received within the allowed time
	LinkStale   = 0x03 // No telemetry for interval * factor
)

const (
	EventStarted = 0x01
	EventStale   = 0x02
	EventResumed = 0x03
)

type EventCallback func(event uint8)

// Monitors the arrival of heartbeat telemetry
// Staleness is global : every channel is unknown while the link is stale
type Link struct {
	logger        *log.Entry
	heartbeat     dialect.Channel
	timeout       time.Duration
	lastTelemetry time.Time
	state         uint8
	eventCallback EventCallback
}

// Create a link monitor, the link is considered stale after interval * factor
// without heartbeat. start is the reference time before the first frame
func NewLink(logger *log.Logger, heartbeat dialect.Channel, interval time.Duration, factor int, start time.Time) (*Link, error) {
	if interval <= 0 || factor <= 0 {
		return nil, fmt.Errorf("%w : interval %v, factor %d", r48.ErrIllegalArgument, interval, factor)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Link{
		logger:        logger.WithField("service", "[LINK]"),
		heartbeat:     heartbeat,
		timeout:       interval * time.Duration(factor),
		lastTelemetry: start,
		state:         LinkUnknown,
	}, nil
}

// Callback on link events : started, stale, resumed
func (l *Link) OnEvent(callback EventCallback) {
	l.eventCallback = callback
}

// Record a decoded telemetry channel, returns true if the link came back from stale
func (l *Link) Observe(channel dialect.Channel, now time.Time) bool {
	if channel != l.heartbeat {
		return false
	}
	l.lastTelemetry = now
	prev := l.state
	l.state = LinkActive

	switch prev {
	case LinkUnknown:
		l.logger.Infof("telemetry started (heartbeat %v)", l.heartbeat)
		l.emit(EventStarted)
	case LinkStale:
		l.logger.Infof("telemetry resumed (heartbeat %v)", l.heartbeat)
		l.emit(EventResumed)
		return true
	}
	return false
}

// Evaluate staleness, returns true on the transition to stale
func (l *Link) Check(now time.Time) bool {
	if l.state == LinkStale {
		return false
	}
	if now.Sub(l.lastTelemetry) <= l.timeout {
		return false
	}
	l.state = LinkStale
	l.logger.Warnf("no %v telemetry for %v, link is stale", l.heartbeat, now.Sub(l.lastTelemetry).Round(time.Millisecond))
	l.emit(EventStale)
	return true
}

func (l *Link) emit(event uint8) {
	if l.eventCallback != nil {
		l.eventCallback(event)
	}
}

func (l *Link) Stale() bool {
	return l.state == LinkStale
}

func (l *Link) State() uint8 {
	return l.state
}

func (l *Link) LastTelemetry() time.Time {
	return l.lastTelemetry
}

func (l *Link) Timeout() time.Duration {
	return l.timeout
}
