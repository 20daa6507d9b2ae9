package poll

import (
	"fmt"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/samsamfire/gor48/pkg/dialect"
)

// Round robin over the poll requests of a dialect, one request per tick
// Rectifiers only answer one query per request frame, so a full
// telemetry refresh takes len(spec.PollCycle) ticks
type Sequencer struct {
	spec *dialect.Spec
	step int
}

func NewSequencer(spec *dialect.Spec) (*Sequencer, error) {
	if spec == nil || len(spec.PollCycle) == 0 {
		return nil, fmt.Errorf("%w : empty poll cycle", r48.ErrIllegalArgument)
	}
	return &Sequencer{spec: spec}, nil
}

// Current step
func (s *Sequencer) Step() int {
	return s.step
}

// Cycle length
func (s *Sequencer) Len() int {
	return len(s.spec.PollCycle)
}

// Name of the request at the current step
func (s *Sequencer) Name() string {
	return s.spec.PollCycle[s.step].Name
}

// Request frame for the current step
func (s *Sequencer) Emit() r48.Frame {
	frame, _ := codec.EncodeRequest(s.spec, s.step)
	return frame
}

// Move to the next step, wrapping after the last one
func (s *Sequencer) Advance() {
	s.step++
	if s.step >= len(s.spec.PollCycle) {
		s.step = 0
	}
}

// Emit then advance
func (s *Sequencer) Next() r48.Frame {
	frame := s.Emit()
	s.Advance()
	return frame
}

func (s *Sequencer) Reset() {
	s.step = 0
}
