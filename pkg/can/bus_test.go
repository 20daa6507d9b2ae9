package can

import (
	"testing"

	r48 "github.com/samsamfire/gor48"
	"github.com/stretchr/testify/assert"
)

type nullBus struct{}

func (nullBus) Connect(...any) error              { return nil }
func (nullBus) Disconnect() error                 { return nil }
func (nullBus) Send(r48.Frame) error              { return nil }
func (nullBus) Subscribe(r48.FrameListener) error { return nil }

func TestRegistry(t *testing.T) {
	RegisterInterface("null", func(channel string) (r48.Bus, error) { return nullBus{}, nil })
	bus, err := NewBus("null", "whatever")
	assert.Nil(t, err)
	assert.NotNil(t, bus)
	assert.Contains(t, AvailableInterfaces(), "null")

	_, err = NewBus("kvaser", "0")
	assert.NotNil(t, err)
}
