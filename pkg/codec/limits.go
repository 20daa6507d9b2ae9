package codec

import (
	"fmt"

	r48 "github.com/samsamfire/gor48"
)

// Rated limits of a rectifier module
type Limits struct {
	VoltageMin      float64 // exclusive
	VoltageMax      float64 // exclusive
	RatedCurrent    float64 // amps corresponding to RatedPercentage
	RatedPercentage float64
	PercentageMin   float64 // inclusive
	PercentageMax   float64 // inclusive
	CurrentMin      float64 // inclusive, amps
	CurrentMax      float64 // inclusive, amps
	InputCurrentMax float64 // inclusive, AC input amps
}

// Limits of the R48-3000e
func DefaultLimits() Limits {
	return Limits{
		VoltageMin:      41.0,
		VoltageMax:      58.5,
		RatedCurrent:    62.5,
		RatedPercentage: 121,
		PercentageMin:   10,
		PercentageMax:   121,
		CurrentMin:      5.5, // 10%, rounded up to nearest 0.5A
		CurrentMax:      62.5,
		InputCurrentMax: 20,
	}
}

func (l Limits) Validate() error {
	if l.VoltageMin >= l.VoltageMax {
		return fmt.Errorf("%w : voltage min %v >= max %v", r48.ErrIllegalArgument, l.VoltageMin, l.VoltageMax)
	}
	if l.PercentageMin > l.PercentageMax {
		return fmt.Errorf("%w : percentage min %v > max %v", r48.ErrIllegalArgument, l.PercentageMin, l.PercentageMax)
	}
	if l.CurrentMin > l.CurrentMax {
		return fmt.Errorf("%w : current min %v > max %v", r48.ErrIllegalArgument, l.CurrentMin, l.CurrentMax)
	}
	if l.InputCurrentMax <= 0 {
		return fmt.Errorf("%w : input current max %v", r48.ErrIllegalArgument, l.InputCurrentMax)
	}
	if l.RatedCurrent <= 0 || l.RatedPercentage <= 0 {
		return fmt.Errorf("%w : rated current %v, rated percentage %v", r48.ErrIllegalArgument, l.RatedCurrent, l.RatedPercentage)
	}
	return nil
}

// Convert amps into a percentage of the rated current
func (l Limits) Percentage(amps float64) float64 {
	return amps / l.RatedCurrent * l.RatedPercentage
}

// Convert a percentage of the rated current into amps
func (l Limits) Amps(percentage float64) float64 {
	return percentage / l.RatedPercentage * l.RatedCurrent
}

func (l Limits) checkVoltage(v float64) error {
	return checkRange("output voltage", v, l.VoltageMin, l.VoltageMax, false, false)
}

func (l Limits) checkPercentage(p float64) error {
	return checkRange("output current percentage", p, l.PercentageMin, l.PercentageMax, true, true)
}

func (l Limits) checkAmps(a float64) error {
	return checkRange("output current", a, l.CurrentMin, l.CurrentMax, true, true)
}

func (l Limits) checkInputCurrent(a float64) error {
	return checkRange("input current", a, 0, l.InputCurrentMax, false, true)
}
