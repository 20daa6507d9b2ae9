package r48

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type memoryBus struct {
	sent []Frame
	err  error
}

func (b *memoryBus) Connect(...any) error { return nil }
func (b *memoryBus) Disconnect() error { return nil }
func (b *memoryBus) Subscribe(callback FrameListener) error { return nil }
func (b *memoryBus) Send(frame Frame) error {
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, frame)
	return nil
}

type frameCollector struct {
	frames []Frame
}

func (c *frameCollector) Handle(frame Frame) {
	c.frames = append(c.frames, frame)
}

func TestNewFrame(t *testing.T) {
	frame := NewFrame(0x060F8003, false, [8]byte{0x01, 0xF0})
	assert.True(t, frame.Extended())
	assert.False(t, frame.RTR())
	assert.EqualValues(t, 0x060F8003, frame.Identifier())
	assert.EqualValues(t, 8, frame.DLC)
	assert.Len(t, frame.Payload(), 8)

	rtr := NewFrame(0xFFFFFFFF, true, [8]byte{})
	assert.True(t, rtr.RTR())
	assert.EqualValues(t, CanEffMask, rtr.Identifier())
	assert.Contains(t, rtr.String(), " R ")
}

func TestFramePayloadClampsDLC(t *testing.T) {
	frame := Frame{ID: 0x123, DLC: 15}
	assert.False(t, frame.Extended())
	assert.EqualValues(t, 0x123, frame.Identifier())
	assert.Len(t, frame.Payload(), 8)
	frame.DLC = 2
	assert.Len(t, frame.Payload(), 2)
	assert.Equal(t, "0x00000123 [2] 00 00", frame.String())
}

func TestBusManagerDispatch(t *testing.T) {
	bm := NewBusManager(&memoryBus{}, nil)
	exact := &frameCollector{}
	masked := &frameCollector{}
	remote := &frameCollector{}
	_, err := bm.Subscribe(0x060F8003, CanEffMask, false, exact)
	assert.Nil(t, err)
	_, err = bm.Subscribe(0x06000000, 0x1FFF0000, false, masked)
	assert.Nil(t, err)
	_, err = bm.Subscribe(0x06000783, CanEffMask, true, remote)
	assert.Nil(t, err)

	bm.Handle(NewFrame(0x060F8003, false, [8]byte{}))
	bm.Handle(NewFrame(0x06001234, false, [8]byte{}))
	bm.Handle(NewFrame(0x06000783, true, [8]byte{}))
	// Standard frames never match extended subscriptions
	bm.Handle(Frame{ID: 0x003, DLC: 8})

	assert.Len(t, exact.frames, 1)
	assert.Len(t, masked.frames, 1)
	assert.Len(t, remote.frames, 1)
	_, rx := bm.Stats()
	assert.EqualValues(t, 4, rx)
}

func TestBusManagerUnsubscribe(t *testing.T) {
	bm := NewBusManager(&memoryBus{}, nil)
	collector := &frameCollector{}
	cancel, err := bm.Subscribe(0x0707F803, CanEffMask, false, collector)
	assert.Nil(t, err)
	bm.Handle(NewFrame(0x0707F803, false, [8]byte{}))
	cancel()
	bm.Handle(NewFrame(0x0707F803, false, [8]byte{}))
	assert.Len(t, collector.frames, 1)

	_, err = bm.Subscribe(0x0707F803, CanEffMask, false, nil)
	assert.Equal(t, ErrIllegalArgument, err)
}

func TestBusManagerSend(t *testing.T) {
	bus := &memoryBus{}
	bm := NewBusManager(bus, nil)
	frame := NewFrame(0x06080783, false, [8]byte{0x00, 0xF0, 0x01, 0x80})
	assert.Nil(t, bm.Send(frame))
	assert.Equal(t, []Frame{frame}, bus.sent)

	failure := errors.New("tx buffer full")
	bus.err = failure
	err := bm.Send(frame)
	assert.ErrorIs(t, err, failure)

	bm.SetBus(nil)
	assert.Equal(t, ErrNoBus, bm.Send(frame))
	// Failed sends are not counted
	tx, _ := bm.Stats()
	assert.EqualValues(t, 1, tx)
}
