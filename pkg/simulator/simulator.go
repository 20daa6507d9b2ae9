package simulator

import (
	"errors"
	"sync"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/samsamfire/gor48/pkg/dialect"
	log "github.com/sirupsen/logrus"
)

// Simulated rectifier answering poll requests and applying commands
// Used for bench testing without hardware, e.g. over a virtual bus
type Device struct {
	mu        sync.Mutex
	bm        *r48.BusManager
	logger    *log.Entry
	spec      *dialect.Spec
	values    map[dialect.Channel]float64
	silent    bool
	offline   map[codec.CommandKind]float64
	cancelers []func()
}

// Nominal readings of an idle R48 on the grid
func DefaultValues() map[dialect.Channel]float64 {
	return map[dialect.Channel]float64{
		dialect.InputPower:         1200,
		dialect.InputVoltage:       230,
		dialect.InputCurrent:       5.25,
		dialect.InputTemperature:   28,
		dialect.InputFrequency:     50,
		dialect.OutputPower:        1150,
		dialect.OutputVoltage:      53.5,
		dialect.OutputCurrent:      21.5,
		dialect.OutputCurrentLimit: 62.5,
		dialect.OutputTemperature:  35,
		dialect.Efficiency:         95.75,
	}
}

func NewDevice(bm *r48.BusManager, spec *dialect.Spec, logger *log.Logger) (*Device, error) {
	if bm == nil || spec == nil {
		return nil, r48.ErrIllegalArgument
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	d := &Device{
		bm:      bm,
		logger:  logger.WithFields(log.Fields{"service": "[SIM]", "dialect": spec.Dialect}),
		spec:    spec,
		values:  DefaultValues(),
		offline: map[codec.CommandKind]float64{},
	}
	if spec.Encoding == dialect.EncodingFloat {
		// Float dialects report the current limit as a ratio
		d.values[dialect.OutputCurrentLimit] = 1.21
	}
	for _, id := range []uint32{spec.RequestID, spec.ControlID} {
		cancel, err := bm.Subscribe(id, r48.CanEffMask, spec.RequestRTR && id == spec.RequestID, d)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.cancelers = append(d.cancelers, cancel)
	}
	return d, nil
}

func (d *Device) Close() {
	for _, cancel := range d.cancelers {
		cancel()
	}
	d.cancelers = nil
}

// Stop or resume answering requests, to simulate a lost link
func (d *Device) SetSilent(silent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent = silent
}

func (d *Device) SetValue(channel dialect.Channel, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[channel] = value
}

func (d *Device) Value(channel dialect.Channel) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.values[channel]
}

// Last persistent value received for a command
func (d *Device) Offline(kind codec.CommandKind) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.offline[kind]
	return v, ok
}

// Handle requests and commands, implements [r48.FrameListener]
func (d *Device) Handle(frame r48.Frame) {
	switch frame.Identifier() {
	case d.spec.ControlID:
		d.handleCommand(frame)
	case d.spec.RequestID:
		d.handleRequest(frame)
	}
}

func (d *Device) handleCommand(frame r48.Frame) {
	kind, value, persistent, err := codec.DecodeCommand(d.spec, frame)
	if err != nil {
		d.logger.Debugf("ignored command %v : %v", frame, err)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	switch kind {
	case codec.SetOutputVoltage:
		d.values[dialect.OutputVoltage] = value
	case codec.SetMaxOutputCurrent:
		if d.spec.Encoding == dialect.EncodingFloat {
			value = value / 100
		}
		d.values[dialect.OutputCurrentLimit] = value
	}
	if persistent {
		d.offline[kind] = value
	}
	d.logger.Infof("%v %v (persistent %v)", kind, value, persistent)
}

func (d *Device) channelsFor(frame r48.Frame) []dialect.Channel {
	for _, req := range d.spec.PollCycle {
		if req.Payload == frame.Data && len(req.Channels) > 0 {
			return req.Channels
		}
	}
	if p, ok := d.spec.Lookup(frame.Data[d.spec.DiscriminatorOffset]); ok {
		return []dialect.Channel{p.Channel}
	}
	return nil
}

func (d *Device) handleRequest(frame r48.Frame) {
	d.mu.Lock()
	if d.silent {
		d.mu.Unlock()
		return
	}
	var replies []r48.Frame
	for _, ch := range d.channelsFor(frame) {
		reply, err := codec.EncodeTelemetry(d.spec, ch, d.values[ch])
		if err == nil {
			replies = append(replies, reply)
		}
	}
	d.mu.Unlock()

	var errs []error
	for _, reply := range replies {
		errs = append(errs, d.bm.Send(reply))
	}
	if err := errors.Join(errs...); err != nil {
		d.logger.Warnf("reply failed : %v", err)
	}
}
