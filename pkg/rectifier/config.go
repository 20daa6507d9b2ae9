package rectifier

import (
	"fmt"
	"time"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/samsamfire/gor48/pkg/dialect"
	log "github.com/sirupsen/logrus"
)

const DefaultUpdateInterval = 5 * time.Second

// Rectifier configuration
type Config struct {
	Dialect        dialect.Dialect
	Limits         codec.Limits
	UpdateInterval time.Duration
	StaleFactor    int                   // 0 uses the dialect default
	PollCycle      []dialect.PollRequest // nil uses the dialect default
	TargetVoltage  *float64              // initial offline targets, used by CommitOfflineValues
	TargetCurrent  *float64
	ControlFlags   codec.ControlFlags
	Logger         *log.Logger
	Now            func() time.Time

	// Some dialect A firmwares use 0x21 for offline and 0x24 for online voltage
	SwapVoltageCodes bool
}

func DefaultConfig() Config {
	return Config{
		Dialect:        dialect.DialectA,
		Limits:         codec.DefaultLimits(),
		UpdateInterval: DefaultUpdateInterval,
		ControlFlags:   codec.DefaultControlFlags(),
	}
}

// Build the dialect spec with the configured overrides
func (c *Config) Spec() (*dialect.Spec, error) {
	spec, err := dialect.Get(c.Dialect)
	if err != nil {
		return nil, err
	}
	if c.PollCycle != nil {
		spec = spec.WithPollCycle(c.PollCycle)
	}
	if c.StaleFactor != 0 {
		spec = spec.WithStaleFactor(c.StaleFactor)
	}
	if c.SwapVoltageCodes {
		spec = spec.WithSwappedVoltageCodes()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (c *Config) validate() error {
	if c.UpdateInterval <= 0 {
		return fmt.Errorf("%w : update interval %v", r48.ErrIllegalArgument, c.UpdateInterval)
	}
	if c.StaleFactor < 0 {
		return fmt.Errorf("%w : stale factor %d", r48.ErrIllegalArgument, c.StaleFactor)
	}
	return c.Limits.Validate()
}
