package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/dialect"
)

const fixedPointScale = 1024.0
const currentScale = 20.0

// Pack a float32 bit pattern big endian, the value is never cast to an integer
func PutFloat(b []byte, v float32) {
	binary.BigEndian.PutUint32(b, math.Float32bits(v))
}

func Float(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// Pack a scaled fixed point value, truncated toward zero
func PutFixed(b []byte, v float64, scale float64) {
	binary.BigEndian.PutUint32(b, uint32(int32(v*scale)))
}

func Fixed(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// Decode a telemetry frame
// Returns false for frames that are not telemetry of the dialect or that carry
// an unknown parameter, this is not an error
func Decode(spec *dialect.Spec, frame r48.Frame) (dialect.Channel, float64, bool) {
	if frame.RTR() || frame.DLC < 8 {
		return 0, 0, false
	}
	if (frame.Identifier()^spec.TelemetryID)&spec.TelemetryMask != 0 {
		return 0, 0, false
	}
	param, ok := spec.Lookup(frame.Data[spec.DiscriminatorOffset])
	if !ok {
		return 0, 0, false
	}
	var value float64
	switch spec.Encoding {
	case dialect.EncodingFloat:
		value = float64(Float(frame.Data[4:8]))
	default:
		value = float64(Fixed(frame.Data[4:8])) / param.Rule.Divisor * param.Rule.Multiplier
	}
	return param.Channel, value, true
}

// Build the request frame for a poll cycle step
func EncodeRequest(spec *dialect.Spec, step int) (r48.Frame, error) {
	if step < 0 || step >= len(spec.PollCycle) {
		return r48.Frame{}, fmt.Errorf("%w : poll step %d, cycle length %d", r48.ErrIllegalArgument, step, len(spec.PollCycle))
	}
	return r48.NewFrame(spec.RequestID, spec.RequestRTR, spec.PollCycle[step].Payload), nil
}

// Build a telemetry frame as sent by a rectifier, the inverse of Decode
// Used by simulators and tests
func EncodeTelemetry(spec *dialect.Spec, channel dialect.Channel, value float64) (r48.Frame, error) {
	code, ok := spec.Discriminator(channel)
	if !ok {
		return r48.Frame{}, fmt.Errorf("%w : channel %v not reported by dialect %v", r48.ErrUnsupported, channel, spec.Dialect)
	}
	var data [8]byte
	data[spec.DiscriminatorOffset] = code
	switch spec.Encoding {
	case dialect.EncodingFloat:
		PutFloat(data[4:8], float32(value))
	default:
		rule := spec.Parameters[code].Rule
		PutFixed(data[4:8], value/rule.Multiplier, rule.Divisor)
	}
	return r48.NewFrame(spec.TelemetryID, false, data), nil
}
