package codec

import (
	"fmt"

	r48 "github.com/samsamfire/gor48"
)

// Value rejected because it lies outside the device limits
// No frame is produced when this is returned
type RangeError struct {
	Quantity     string
	Value        float64
	Min          float64
	Max          float64
	MinInclusive bool
	MaxInclusive bool
}

func (e *RangeError) Error() string {
	lo, hi := "(", ")"
	if e.MinInclusive {
		lo = "["
	}
	if e.MaxInclusive {
		hi = "]"
	}
	return fmt.Sprintf("%s %g outside of %s%g, %g%s", e.Quantity, e.Value, lo, e.Min, e.Max, hi)
}

func (e *RangeError) Unwrap() error {
	return r48.ErrOutOfRange
}

func (e *RangeError) contains(v float64) bool {
	if v != v {
		return false
	}
	aboveMin := v > e.Min || (e.MinInclusive && v == e.Min)
	belowMax := v < e.Max || (e.MaxInclusive && v == e.Max)
	return aboveMin && belowMax
}

// Check v against an interval, returns a *RangeError if outside
func checkRange(quantity string, v, min, max float64, minInclusive, maxInclusive bool) error {
	e := &RangeError{Quantity: quantity, Value: v, Min: min, Max: max, MinInclusive: minInclusive, MaxInclusive: maxInclusive}
	if e.contains(v) {
		return nil
	}
	return e
}
