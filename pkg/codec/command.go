package codec

import (
	"fmt"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/dialect"
)

// Command to encode
type CommandKind uint8

const (
	SetOutputVoltage CommandKind = iota
	SetMaxOutputCurrent
)

func (k CommandKind) String() string {
	switch k {
	case SetOutputVoltage:
		return "set output voltage"
	case SetMaxOutputCurrent:
		return "set max output current"
	}
	return fmt.Sprintf("command(%d)", uint8(k))
}

func commandFrame(spec *dialect.Spec, code uint8) r48.Frame {
	var data [8]byte
	copy(data[:4], spec.CommandPrefix[:])
	data[spec.CommandCodeOffset] = code
	return r48.NewFrame(spec.ControlID, false, data)
}

// Encode a voltage or current limit command
// For current, magnitude is a percentage of the rated current on percentage
// dialects and amps on fixed point dialects.
// A persistent (offline) command survives, an online one reverts after ~30s
func EncodeCommand(spec *dialect.Spec, limits Limits, kind CommandKind, magnitude float64, persistent bool) (r48.Frame, error) {
	switch kind {
	case SetOutputVoltage:
		return encodeVoltage(spec, limits, magnitude, persistent)
	case SetMaxOutputCurrent:
		return encodeCurrent(spec, limits, magnitude, persistent)
	}
	return r48.Frame{}, fmt.Errorf("%w : %v", r48.ErrIllegalArgument, kind)
}

func encodeVoltage(spec *dialect.Spec, limits Limits, v float64, persistent bool) (r48.Frame, error) {
	if err := limits.checkVoltage(v); err != nil {
		return r48.Frame{}, err
	}
	code := spec.Codes.VoltageOnline
	if persistent {
		code = spec.Codes.VoltageOffline
	}
	frame := commandFrame(spec, code)
	switch spec.Encoding {
	case dialect.EncodingFloat:
		PutFloat(frame.Data[4:8], float32(v))
	default:
		PutFixed(frame.Data[4:8], v, fixedPointScale)
	}
	return frame, nil
}

func encodeCurrent(spec *dialect.Spec, limits Limits, x float64, persistent bool) (r48.Frame, error) {
	code := spec.Codes.CurrentOnline
	if persistent {
		code = spec.Codes.CurrentOffline
	}
	switch spec.CurrentMode {
	case dialect.CurrentPercentage:
		if err := limits.checkPercentage(x); err != nil {
			return r48.Frame{}, err
		}
	default:
		if err := limits.checkAmps(x); err != nil {
			return r48.Frame{}, err
		}
	}
	frame := commandFrame(spec, code)
	switch spec.Encoding {
	case dialect.EncodingFloat:
		PutFloat(frame.Data[4:8], float32(x/100))
	default:
		PutFixed(frame.Data[4:8], x, currentScale)
	}
	return frame, nil
}

// Convert amps into the magnitude expected by EncodeCommand for current limits
func CurrentMagnitude(spec *dialect.Spec, limits Limits, amps float64) (float64, error) {
	if err := limits.checkAmps(amps); err != nil {
		return 0, err
	}
	if spec.CurrentMode == dialect.CurrentPercentage {
		return limits.Percentage(amps), nil
	}
	return amps, nil
}

// Decode the magnitude carried by a command frame, inverse of EncodeCommand
func DecodeCommand(spec *dialect.Spec, frame r48.Frame) (CommandKind, float64, bool, error) {
	if frame.Identifier() != spec.ControlID {
		return 0, 0, false, fmt.Errorf("%w : not a command frame %v", r48.ErrIllegalArgument, frame)
	}
	code := frame.Data[spec.CommandCodeOffset]
	var kind CommandKind
	var persistent bool
	switch code {
	case spec.Codes.VoltageOnline, spec.Codes.VoltageOffline:
		kind, persistent = SetOutputVoltage, code == spec.Codes.VoltageOffline
	case spec.Codes.CurrentOnline, spec.Codes.CurrentOffline:
		kind, persistent = SetMaxOutputCurrent, code == spec.Codes.CurrentOffline
	default:
		return 0, 0, false, fmt.Errorf("%w : unknown function code x%02x", r48.ErrIllegalArgument, code)
	}
	if spec.Encoding == dialect.EncodingFloat {
		v := float64(Float(frame.Data[4:8]))
		if kind == SetMaxOutputCurrent {
			v *= 100
		}
		return kind, v, persistent, nil
	}
	scale := fixedPointScale
	if kind == SetMaxOutputCurrent {
		scale = currentScale
	}
	return kind, float64(Fixed(frame.Data[4:8])) / scale, persistent, nil
}

// AC input current limit (diesel power limit), reduces the overall power
func EncodeInputCurrentLimit(spec *dialect.Spec, limits Limits, amps float64) (r48.Frame, error) {
	if spec.Codes.InputCurrent == 0 || spec.Encoding != dialect.EncodingFloat {
		return r48.Frame{}, fmt.Errorf("%w : input current limit on dialect %v", r48.ErrUnsupported, spec.Dialect)
	}
	if err := limits.checkInputCurrent(amps); err != nil {
		return r48.Frame{}, err
	}
	frame := commandFrame(spec, spec.Codes.InputCurrent)
	PutFloat(frame.Data[4:8], float32(amps))
	return frame, nil
}
