package monitor

import (
	"testing"
	"time"

	"github.com/samsamfire/gor48/pkg/dialect"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLinkBecomesStale(t *testing.T) {
	interval := 5 * time.Second
	link, err := NewLink(nil, dialect.InputVoltage, interval, 10, t0)
	assert.Nil(t, err)
	assert.Equal(t, 50*time.Second, link.Timeout())
	assert.EqualValues(t, LinkUnknown, link.State())

	// Exactly on the limit is not stale yet
	assert.False(t, link.Check(t0.Add(50*time.Second)))
	assert.False(t, link.Stale())
	assert.True(t, link.Check(t0.Add(51*time.Second)))
	assert.True(t, link.Stale())
	// Transition reported once
	assert.False(t, link.Check(t0.Add(60*time.Second)))
}

func TestLinkHeartbeatOnly(t *testing.T) {
	link, _ := NewLink(nil, dialect.InputVoltage, time.Second, 5, t0)
	events := []uint8{}
	link.OnEvent(func(event uint8) { events = append(events, event) })

	assert.False(t, link.Observe(dialect.OutputVoltage, t0.Add(4*time.Second)))
	assert.True(t, link.Check(t0.Add(6*time.Second)))

	assert.True(t, link.Observe(dialect.InputVoltage, t0.Add(7*time.Second)))
	assert.False(t, link.Stale())
	assert.Equal(t, t0.Add(7*time.Second), link.LastTelemetry())
	assert.False(t, link.Check(t0.Add(12*time.Second)))
	assert.True(t, link.Check(t0.Add(13*time.Second)))

	assert.Equal(t, []uint8{EventStale, EventResumed, EventStale}, events)
}

func TestLinkStarted(t *testing.T) {
	link, _ := NewLink(nil, dialect.InputVoltage, time.Second, 5, t0)
	var started int
	link.OnEvent(func(event uint8) {
		if event == EventStarted {
			started++
		}
	})
	assert.False(t, link.Observe(dialect.InputVoltage, t0))
	assert.False(t, link.Observe(dialect.InputVoltage, t0.Add(time.Second)))
	assert.Equal(t, 1, started)
	assert.EqualValues(t, LinkActive, link.State())
}

func TestLinkInvalidArguments(t *testing.T) {
	_, err := NewLink(nil, dialect.InputVoltage, 0, 5, t0)
	assert.NotNil(t, err)
	_, err = NewLink(nil, dialect.InputVoltage, time.Second, 0, t0)
	assert.NotNil(t, err)
}
