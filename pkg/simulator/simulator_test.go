package simulator

import (
	"testing"
	"time"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/samsamfire/gor48/pkg/dialect"
	"github.com/samsamfire/gor48/pkg/rectifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Bus delivering every sent frame back to its subscriber
type loopbackBus struct {
	listener r48.FrameListener
}

func (b *loopbackBus) Connect(...any) error { return nil }
func (b *loopbackBus) Disconnect() error    { return nil }

func (b *loopbackBus) Send(frame r48.Frame) error {
	if b.listener != nil {
		b.listener.Handle(frame)
	}
	return nil
}

func (b *loopbackBus) Subscribe(listener r48.FrameListener) error {
	b.listener = listener
	return nil
}

type bench struct {
	now    time.Time
	device *Device
	r      *rectifier.Rectifier
}

func newBench(t *testing.T, d dialect.Dialect) *bench {
	t.Helper()
	bus := &loopbackBus{}
	bm := r48.NewBusManager(bus, nil)
	bus.Subscribe(bm)

	b := &bench{now: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	config := rectifier.DefaultConfig()
	config.Dialect = d
	config.Now = func() time.Time { return b.now }
	r, err := rectifier.New(bm, config)
	require.Nil(t, err)
	device, err := NewDevice(bm, r.Spec(), nil)
	require.Nil(t, err)
	b.r, b.device = r, device
	return b
}

func (b *bench) cycle(t *testing.T) {
	for i := 0; i < len(b.r.Spec().PollCycle); i++ {
		b.now = b.now.Add(rectifier.DefaultUpdateInterval)
		assert.Nil(t, b.r.Tick())
	}
}

func TestPollCycleAcquiresTelemetry(t *testing.T) {
	for _, d := range []dialect.Dialect{dialect.DialectA, dialect.DialectB, dialect.DialectC} {
		b := newBench(t, d)
		b.cycle(t)
		for _, req := range b.r.Spec().PollCycle {
			for _, ch := range req.Channels {
				v, ok := b.r.ChannelValue(ch)
				assert.True(t, ok, "%v %v", d, ch)
				assert.InDelta(t, b.device.Value(ch), v, 0.1, "%v %v", d, ch)
			}
		}
		assert.False(t, b.r.Stale())
	}
}

func TestSilentDeviceGoesStale(t *testing.T) {
	b := newBench(t, dialect.DialectC)
	b.cycle(t)
	b.device.SetSilent(true)
	for i := 0; i < 6; i++ {
		b.cycle(t)
	}
	assert.True(t, b.r.Stale())
	_, ok := b.r.ChannelValue(dialect.OutputVoltage)
	assert.False(t, ok)

	b.device.SetSilent(false)
	b.cycle(t)
	assert.False(t, b.r.Stale())
	_, ok = b.r.ChannelValue(dialect.OutputVoltage)
	assert.True(t, ok)
}

func TestCommandsReachDevice(t *testing.T) {
	b := newBench(t, dialect.DialectA)
	assert.Nil(t, b.r.SetOutputVoltage(52.5, false))
	assert.Equal(t, 52.5, b.device.Value(dialect.OutputVoltage))
	_, ok := b.device.Offline(codec.SetOutputVoltage)
	assert.False(t, ok)

	assert.Nil(t, b.r.SetMaxOutputCurrent(50, false))
	assert.Nil(t, b.r.CommitOfflineValues())
	v, ok := b.device.Offline(codec.SetOutputVoltage)
	assert.True(t, ok)
	assert.Equal(t, 52.5, v)
	v, ok = b.device.Offline(codec.SetMaxOutputCurrent)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-6)

	b.cycle(t)
	v, _ = b.r.ChannelValue(dialect.OutputVoltage)
	assert.Equal(t, 52.5, v)
}

func TestFixedPointCommandsReachDevice(t *testing.T) {
	b := newBench(t, dialect.DialectB)
	assert.Nil(t, b.r.SetOutputVoltage(48.25, true))
	assert.Nil(t, b.r.SetMaxOutputCurrentAmps(30, true))
	v, _ := b.device.Offline(codec.SetOutputVoltage)
	assert.Equal(t, 48.25, v)
	v, _ = b.device.Offline(codec.SetMaxOutputCurrent)
	assert.Equal(t, 30.0, v)
}
