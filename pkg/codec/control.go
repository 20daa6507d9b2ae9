package codec

import (
	"fmt"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/dialect"
)

// System control bits of the rectifier
type ControlFlags struct {
	DCOff    bool
	FanFull  bool
	FlashLED bool
	ACOff    bool
}

// AC off is the default state of the module
func DefaultControlFlags() ControlFlags {
	return ControlFlags{ACOff: true}
}

func (f ControlFlags) Byte() uint8 {
	var b uint8 = 1
	if f.DCOff {
		b |= 1 << 7
	}
	if f.FanFull {
		b |= 1 << 4
	}
	if f.FlashLED {
		b |= 1 << 3
	}
	if f.ACOff {
		b |= 1 << 2
	}
	return b
}

// Build the system control frame carrying the flags
func EncodeControl(spec *dialect.Spec, flags ControlFlags) (r48.Frame, error) {
	if spec.SystemControlID == 0 {
		return r48.Frame{}, fmt.Errorf("%w : system control on dialect %v", r48.ErrUnsupported, spec.Dialect)
	}
	data := [8]byte{0x00, 0xF0, flags.Byte(), 0x80}
	return r48.NewFrame(spec.SystemControlID, false, data), nil
}
