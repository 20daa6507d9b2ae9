package dialect

import (
	"fmt"
	"strings"

	r48 "github.com/samsamfire/gor48"
)

// Wire dialect of a rectifier firmware generation
type Dialect uint8

const (
	DialectA Dialect = iota // R48 float telemetry (IEEE-754)
	DialectB                // R48xx legacy fixed point, grouped queries
	DialectC                // R48xx legacy fixed point, single parameter requests
)

func (d Dialect) String() string {
	switch d {
	case DialectA:
		return "A"
	case DialectB:
		return "B"
	case DialectC:
		return "C"
	}
	return fmt.Sprintf("dialect(%d)", uint8(d))
}

// Parse a dialect either by letter or by alias
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "r48", "float":
		return DialectA, nil
	case "b", "r48xx", "fixed":
		return DialectB, nil
	case "c", "r48xx-single", "fixed-single":
		return DialectC, nil
	}
	return 0, fmt.Errorf("%w : %q", r48.ErrUnknownDialect, s)
}

// Numeric encoding of telemetry and command values
type Encoding uint8

const (
	EncodingFloat Encoding = iota // float32 bit pattern, big endian
	EncodingFixed                 // signed 32 bit integer, big endian, scaled
)

// Scaling rule applied to a raw fixed point value : raw / Divisor * Multiplier
type Rule struct {
	Divisor    float64
	Multiplier float64
}

// Parameter of a dialect's table
type Parameter struct {
	Channel Channel
	Rule    Rule
}

// Request payload emitted at one step of the poll cycle
// Channels lists the telemetry expected in reply, it may be empty for
// requests loaded from configuration
type PollRequest struct {
	Name     string
	Payload  [8]byte
	Channels []Channel
}

// Function codes selecting the command and its persistence
type CommandCodes struct {
	VoltageOnline  uint8
	VoltageOffline uint8
	CurrentOnline  uint8
	CurrentOffline uint8
	InputCurrent   uint8 // AC input current limit, 0 if unsupported
}

// Current limit semantics of a dialect
type CurrentMode uint8

const (
	CurrentPercentage CurrentMode = iota // percentage of rated current, encoded as a ratio
	CurrentAmps                          // amps, encoded as fixed point
)

// Everything needed to talk a given dialect
type Spec struct {
	Dialect             Dialect
	RequestID           uint32
	TelemetryID         uint32
	TelemetryMask       uint32
	ControlID           uint32
	SystemControlID     uint32 // 0 if the dialect has no system control frame
	DiscriminatorOffset int
	Encoding            Encoding
	Parameters          map[uint8]Parameter
	PollCycle           []PollRequest
	RequestRTR          bool
	CommandPrefix       [4]byte // bytes 0..3 of a command, the function code overwrites one of them
	CommandCodeOffset   int
	Codes               CommandCodes
	CurrentMode         CurrentMode
	HeartbeatChannel    Channel
	StaleFactor         int
}

// Look up the parameter carried by a discriminator byte
func (s *Spec) Lookup(discriminator uint8) (Parameter, bool) {
	p, ok := s.Parameters[discriminator]
	return p, ok
}

// Discriminator byte for a channel, used to build requests and test frames
func (s *Spec) Discriminator(channel Channel) (uint8, bool) {
	for code, p := range s.Parameters {
		if p.Channel == channel {
			return code, true
		}
	}
	return 0, false
}

// Check the dialect description is usable
func (s *Spec) Validate() error {
	if len(s.PollCycle) == 0 {
		return fmt.Errorf("%w : empty poll cycle for dialect %v", r48.ErrIllegalArgument, s.Dialect)
	}
	if len(s.Parameters) == 0 {
		return fmt.Errorf("%w : empty parameter table for dialect %v", r48.ErrIllegalArgument, s.Dialect)
	}
	if s.DiscriminatorOffset < 0 || s.DiscriminatorOffset > 3 {
		return fmt.Errorf("%w : discriminator offset %d", r48.ErrIllegalArgument, s.DiscriminatorOffset)
	}
	if s.CommandCodeOffset < 0 || s.CommandCodeOffset > 3 {
		return fmt.Errorf("%w : command code offset %d", r48.ErrIllegalArgument, s.CommandCodeOffset)
	}
	if s.StaleFactor <= 0 {
		return fmt.Errorf("%w : stale factor %d", r48.ErrIllegalArgument, s.StaleFactor)
	}
	for code, p := range s.Parameters {
		if s.Encoding == EncodingFixed && p.Rule.Divisor == 0 {
			return fmt.Errorf("%w : zero divisor for parameter x%02x", r48.ErrIllegalArgument, code)
		}
	}
	return nil
}

// Copy with a different poll cycle
func (s Spec) WithPollCycle(cycle []PollRequest) *Spec {
	s.PollCycle = append([]PollRequest(nil), cycle...)
	return &s
}

// Copy with the online and offline voltage codes exchanged
func (s Spec) WithSwappedVoltageCodes() *Spec {
	s.Codes.VoltageOnline, s.Codes.VoltageOffline = s.Codes.VoltageOffline, s.Codes.VoltageOnline
	return &s
}

// Copy with a different staleness factor
func (s Spec) WithStaleFactor(factor int) *Spec {
	s.StaleFactor = factor
	return &s
}

// Get the built-in spec of a dialect
// Returned spec is a copy and can be modified freely
func Get(d Dialect) (*Spec, error) {
	var base *Spec
	switch d {
	case DialectA:
		base = &specA
	case DialectB:
		base = &specB
	case DialectC:
		base = &specC
	default:
		return nil, fmt.Errorf("%w : %v", r48.ErrUnknownDialect, d)
	}
	spec := *base
	spec.PollCycle = append([]PollRequest(nil), base.PollCycle...)
	spec.Parameters = make(map[uint8]Parameter, len(base.Parameters))
	for code, p := range base.Parameters {
		spec.Parameters[code] = p
	}
	return &spec, nil
}
