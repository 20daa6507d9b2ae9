package rectifier

import (
	"errors"
	"math"
	"sync"
	"time"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/samsamfire/gor48/pkg/dialect"
	"github.com/samsamfire/gor48/pkg/monitor"
	"github.com/samsamfire/gor48/pkg/poll"
	log "github.com/sirupsen/logrus"
)

// Last known value of a telemetry channel
type Reading struct {
	Value   float64
	Updated time.Time
	Valid   bool
}

// Called for every published channel value, known is false when the
// value became unknown (stale link)
type UpdateCallback func(channel dialect.Channel, value float64, known bool)

type update struct {
	channel dialect.Channel
	value   float64
	known   bool
}

// Protocol core of one rectifier module
// Frames are received on the bus goroutine and ticks come from the host, both
// paths are serialized by mu
type Rectifier struct {
	mu            sync.Mutex
	bm            *r48.BusManager
	logger        *log.Entry
	spec          *dialect.Spec
	limits        codec.Limits
	seq           *poll.Sequencer
	link          *monitor.Link
	readings      [dialect.ChannelCount]Reading
	targetVoltage *float64
	targetCurrent *float64
	flags         codec.ControlFlags
	now           func() time.Time
	rxCancel      func()
	onUpdate      UpdateCallback
	generation    uint64 // incremented on every stale/resume transition
}

// Create a rectifier and subscribe to its telemetry on the bus manager
func New(bm *r48.BusManager, config Config) (*Rectifier, error) {
	if bm == nil {
		return nil, r48.ErrIllegalArgument
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	spec, err := config.Spec()
	if err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	seq, err := poll.NewSequencer(spec)
	if err != nil {
		return nil, err
	}
	link, err := monitor.NewLink(logger, spec.HeartbeatChannel, config.UpdateInterval, spec.StaleFactor, now())
	if err != nil {
		return nil, err
	}
	r := &Rectifier{
		bm:            bm,
		logger:        logger.WithFields(log.Fields{"service": "[R48]", "dialect": spec.Dialect}),
		spec:          spec,
		limits:        config.Limits,
		seq:           seq,
		link:          link,
		targetVoltage: copyTarget(config.TargetVoltage),
		targetCurrent: copyTarget(config.TargetCurrent),
		flags:         config.ControlFlags,
		now:           now,
	}
	r.rxCancel, err = bm.Subscribe(spec.TelemetryID, spec.TelemetryMask, false, r)
	if err != nil {
		return nil, err
	}
	r.logger.Infof("telemetry 0x%08X, requests 0x%08X, commands 0x%08X, %d poll steps, stale after %v",
		spec.TelemetryID, spec.RequestID, spec.ControlID, seq.Len(), link.Timeout())
	return r, nil
}

func copyTarget(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Stop receiving telemetry
func (r *Rectifier) Close() {
	if r.rxCancel != nil {
		r.rxCancel()
		r.rxCancel = nil
	}
}

// Callback for every channel publication
func (r *Rectifier) OnUpdate(callback UpdateCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onUpdate = callback
}

func (r *Rectifier) Spec() *dialect.Spec {
	return r.spec
}

// Handle a received frame, implements [r48.FrameListener]
// Frames that are not recognized telemetry are dropped silently
func (r *Rectifier) Handle(frame r48.Frame) {
	r.mu.Lock()
	channel, value, ok := codec.Decode(r.spec, frame)
	if !ok {
		r.mu.Unlock()
		r.logger.Debugf("ignored %v", frame)
		return
	}
	now := r.now()
	r.readings[channel] = Reading{Value: value, Updated: now, Valid: true}
	r.logger.Debugf("%v : %v", channel, value)

	var updates []update
	if r.link.Observe(channel, now) {
		// All retained values become visible again at once
		r.generation++
		updates = r.knownUpdates()
	} else if !r.link.Stale() {
		updates = []update{{channel: channel, value: value, known: true}}
	}
	callback := r.onUpdate
	generation := r.generation
	r.mu.Unlock()

	r.publish(callback, generation, updates)
}

// Drive the poll cycle and the staleness check, called once per update interval
func (r *Rectifier) Tick() error {
	r.mu.Lock()
	name := r.seq.Name()
	frame := r.seq.Next()
	var updates []update
	if r.link.Check(r.now()) {
		r.generation++
		for _, ch := range dialect.Channels() {
			updates = append(updates, update{channel: ch, value: math.NaN(), known: false})
		}
	}
	callback := r.onUpdate
	generation := r.generation
	r.mu.Unlock()

	r.publish(callback, generation, updates)
	r.logger.Debugf("requesting %v", name)
	return r.bm.Send(frame)
}

// Callbacks run without the lock, a batch built before a later stale/resume
// transition is dropped so subscribers always end on the current link state
func (r *Rectifier) publish(callback UpdateCallback, generation uint64, updates []update) {
	if callback == nil {
		return
	}
	for _, u := range updates {
		r.mu.Lock()
		outdated := r.generation != generation
		r.mu.Unlock()
		if outdated {
			return
		}
		callback(u.channel, u.value, u.known)
	}
}

func (r *Rectifier) knownUpdates() []update {
	updates := make([]update, 0, dialect.ChannelCount)
	for i, reading := range r.readings {
		if reading.Valid {
			updates = append(updates, update{channel: dialect.Channel(i), value: reading.Value, known: true})
		}
	}
	return updates
}

// Last known value of a channel, false if never received or the link is stale
func (r *Rectifier) ChannelValue(channel dialect.Channel) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(channel) >= dialect.ChannelCount || r.link.Stale() {
		return math.NaN(), false
	}
	reading := r.readings[channel]
	if !reading.Valid {
		return math.NaN(), false
	}
	return reading.Value, true
}

// Copy of every channel reading, readings are invalid while the link is stale
func (r *Rectifier) Snapshot() map[dialect.Channel]Reading {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[dialect.Channel]Reading, dialect.ChannelCount)
	stale := r.link.Stale()
	for i, reading := range r.readings {
		if stale {
			reading.Valid = false
		}
		snapshot[dialect.Channel(i)] = reading
	}
	return snapshot
}

// True while no heartbeat telemetry arrived for the configured time
func (r *Rectifier) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.link.Stale()
}

func (r *Rectifier) send(frame r48.Frame, err error) error {
	if err != nil {
		r.logger.Debugf("command rejected : %v", err)
		return err
	}
	return r.bm.Send(frame)
}

// Set the output voltage, persistent selects an offline command that survives
// Online commands revert after ~30s and must be repeated by the caller
func (r *Rectifier) SetOutputVoltage(value float64, persistent bool) error {
	frame, err := codec.EncodeCommand(r.spec, r.limits, codec.SetOutputVoltage, value, persistent)
	if err == nil {
		r.mu.Lock()
		r.targetVoltage = &value
		r.mu.Unlock()
	}
	return r.send(frame, err)
}

// Set the maximum output current, value is a percentage of the rated current
// on percentage dialects and amps otherwise
func (r *Rectifier) SetMaxOutputCurrent(value float64, persistent bool) error {
	frame, err := codec.EncodeCommand(r.spec, r.limits, codec.SetMaxOutputCurrent, value, persistent)
	if err == nil {
		r.mu.Lock()
		r.targetCurrent = &value
		r.mu.Unlock()
	}
	return r.send(frame, err)
}

// Set the maximum output current in amps whatever the dialect
func (r *Rectifier) SetMaxOutputCurrentAmps(amps float64, persistent bool) error {
	magnitude, err := codec.CurrentMagnitude(r.spec, r.limits, amps)
	if err != nil {
		return err
	}
	return r.SetMaxOutputCurrent(magnitude, persistent)
}

// Last user set targets
func (r *Rectifier) Targets() (voltage float64, voltageSet bool, current float64, currentSet bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.targetVoltage != nil {
		voltage, voltageSet = *r.targetVoltage, true
	}
	if r.targetCurrent != nil {
		current, currentSet = *r.targetCurrent, true
	}
	return
}

// Store the last user set targets as offline (persistent) values
// Targets that were never set are skipped
func (r *Rectifier) CommitOfflineValues() error {
	voltage, voltageSet, current, currentSet := r.Targets()
	var errs []error
	if voltageSet {
		errs = append(errs, r.SetOutputVoltage(voltage, true))
	}
	if currentSet {
		errs = append(errs, r.SetMaxOutputCurrent(current, true))
	}
	return errors.Join(errs...)
}

// Send the system control flags (dc off, fan full, led, ac off)
func (r *Rectifier) SetControlFlags(flags codec.ControlFlags) error {
	frame, err := codec.EncodeControl(r.spec, flags)
	if err == nil {
		r.mu.Lock()
		r.flags = flags
		r.mu.Unlock()
	}
	return r.send(frame, err)
}

func (r *Rectifier) ControlFlags() codec.ControlFlags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags
}

// Limit the AC input current
func (r *Rectifier) SetInputCurrentLimit(amps float64) error {
	frame, err := codec.EncodeInputCurrentLimit(r.spec, r.limits, amps)
	return r.send(frame, err)
}
