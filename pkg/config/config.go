package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/samsamfire/gor48/pkg/dialect"
	"github.com/samsamfire/gor48/pkg/rectifier"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInterface = "socketcan"
	DefaultChannel   = "can0"
)

type BusConfig struct {
	Interface string `ini:"interface" yaml:"interface"`
	Channel   string `ini:"channel" yaml:"channel"`
}

type RectifierConfig struct {
	Dialect          string        `ini:"dialect" yaml:"dialect"`
	UpdateInterval   time.Duration `ini:"-" yaml:"update_interval"`
	StaleFactor      int           `ini:"stale_factor" yaml:"stale_factor"`
	TargetVoltage    *float64      `ini:"-" yaml:"target_voltage"`
	TargetCurrent    *float64      `ini:"-" yaml:"target_current"`
	SwapVoltageCodes bool          `ini:"swap_voltage_codes" yaml:"swap_voltage_codes"` // dialect A firmwares with 0x21 offline, 0x24 online
}

type ControlConfig struct {
	DCOff    bool `ini:"dc_off" yaml:"dc_off"`
	FanFull  bool `ini:"fan_full" yaml:"fan_full"`
	FlashLED bool `ini:"flash_led" yaml:"flash_led"`
	ACOff    bool `ini:"ac_off" yaml:"ac_off"`
}

type LimitsConfig struct {
	VoltageMin      float64 `ini:"voltage_min" yaml:"voltage_min"`
	VoltageMax      float64 `ini:"voltage_max" yaml:"voltage_max"`
	RatedCurrent    float64 `ini:"rated_current" yaml:"rated_current"`
	RatedPercentage float64 `ini:"rated_percentage" yaml:"rated_percentage"`
	PercentageMin   float64 `ini:"percentage_min" yaml:"percentage_min"`
	PercentageMax   float64 `ini:"percentage_max" yaml:"percentage_max"`
	CurrentMin      float64 `ini:"current_min" yaml:"current_min"`
	CurrentMax      float64 `ini:"current_max" yaml:"current_max"`
	InputCurrentMax float64 `ini:"input_current_max" yaml:"input_current_max"`
}

// One entry of a poll cycle override, payload is 8 bytes of hex
type PollEntry struct {
	Name    string `yaml:"name"`
	Payload string `yaml:"payload"`
}

// Configuration file of a rectifier controller
type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	Rectifier RectifierConfig `yaml:"rectifier"`
	Limits    LimitsConfig    `yaml:"limits"`
	Control   ControlConfig   `yaml:"control"`
	Poll      []PollEntry     `yaml:"poll"`
}

func Default() *Config {
	limits := codec.DefaultLimits()
	return &Config{
		Bus: BusConfig{Interface: DefaultInterface, Channel: DefaultChannel},
		Rectifier: RectifierConfig{
			Dialect:        "A",
			UpdateInterval: rectifier.DefaultUpdateInterval,
		},
		Limits:  LimitsConfig(limits),
		Control: ControlConfig{ACOff: true},
	}
}

// Load a configuration file, .yaml/.yml files are parsed as YAML, anything
// else as INI. Missing values keep their defaults
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(raw)
	default:
		return ParseINI(raw)
	}
}

func ParseYAML(raw []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("parsing yaml config : %w", err)
	}
	return config, config.Validate()
}

// Parse an INI configuration
//
//	[bus]
//	interface = socketcan
//	channel = can0
//	[rectifier]
//	dialect = A
//	update_interval = 5s
//	[poll]
//	output voltage = 01F0000100000000
func ParseINI(raw []byte) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{KeyValueDelimiters: "="}, raw)
	if err != nil {
		return nil, fmt.Errorf("parsing ini config : %w", err)
	}
	config := Default()
	sections := map[string]any{
		"bus":       &config.Bus,
		"rectifier": &config.Rectifier,
		"limits":    &config.Limits,
		"control":   &config.Control,
	}
	for name, target := range sections {
		section, err := file.GetSection(name)
		if err != nil {
			continue
		}
		if err := section.MapTo(target); err != nil {
			return nil, fmt.Errorf("section [%s] : %w", name, err)
		}
	}
	if section, err := file.GetSection("rectifier"); err == nil {
		if section.HasKey("update_interval") {
			// MapTo ignores durations <= 0, keep them for Validate
			if config.Rectifier.UpdateInterval, err = section.Key("update_interval").Duration(); err != nil {
				return nil, fmt.Errorf("[rectifier] update_interval : %w", err)
			}
		}
		if config.Rectifier.TargetVoltage, err = optionalFloat(section, "target_voltage"); err != nil {
			return nil, err
		}
		if config.Rectifier.TargetCurrent, err = optionalFloat(section, "target_current"); err != nil {
			return nil, err
		}
	}
	// Keys of [poll] keep their file order
	if section, err := file.GetSection("poll"); err == nil {
		for _, key := range section.Keys() {
			config.Poll = append(config.Poll, PollEntry{Name: key.Name(), Payload: key.String()})
		}
	}
	return config, config.Validate()
}

func optionalFloat(section *ini.Section, name string) (*float64, error) {
	if !section.HasKey(name) {
		return nil, nil
	}
	v, err := section.Key(name).Float64()
	if err != nil {
		return nil, fmt.Errorf("[%s] %s : %w", section.Name(), name, err)
	}
	return &v, nil
}

func parsePayload(s string) ([8]byte, error) {
	var payload [8]byte
	s = strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return payload, err
	}
	if len(b) == 0 || len(b) > 8 {
		return payload, fmt.Errorf("payload must be 1 to 8 bytes, got %d", len(b))
	}
	copy(payload[:], b)
	return payload, nil
}

// Report every problem of the configuration
func (c *Config) Validate() error {
	var errs []error
	if c.Bus.Interface == "" {
		errs = append(errs, errors.New("bus interface is empty"))
	}
	if _, err := dialect.ParseDialect(c.Rectifier.Dialect); err != nil {
		errs = append(errs, err)
	}
	if c.Rectifier.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update interval must be positive, got %v", c.Rectifier.UpdateInterval))
	}
	if c.Rectifier.StaleFactor < 0 {
		errs = append(errs, fmt.Errorf("stale factor must not be negative, got %d", c.Rectifier.StaleFactor))
	}
	if err := codec.Limits(c.Limits).Validate(); err != nil {
		errs = append(errs, err)
	}
	for i, entry := range c.Poll {
		if _, err := parsePayload(entry.Payload); err != nil {
			errs = append(errs, fmt.Errorf("poll request %d (%s) : %w", i, entry.Name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w : %w", r48.ErrIllegalArgument, errors.Join(errs...))
	}
	return nil
}

// Convert into the rectifier configuration
func (c *Config) RectifierConfig() (rectifier.Config, error) {
	config := rectifier.DefaultConfig()
	d, err := dialect.ParseDialect(c.Rectifier.Dialect)
	if err != nil {
		return config, err
	}
	config.Dialect = d
	config.Limits = codec.Limits(c.Limits)
	config.UpdateInterval = c.Rectifier.UpdateInterval
	config.StaleFactor = c.Rectifier.StaleFactor
	config.SwapVoltageCodes = c.Rectifier.SwapVoltageCodes
	config.TargetVoltage = c.Rectifier.TargetVoltage
	config.TargetCurrent = c.Rectifier.TargetCurrent
	config.ControlFlags = codec.ControlFlags(c.Control)
	for i, entry := range c.Poll {
		payload, err := parsePayload(entry.Payload)
		if err != nil {
			return config, err
		}
		name := entry.Name
		if name == "" {
			name = strconv.Itoa(i)
		}
		config.PollCycle = append(config.PollCycle, dialect.PollRequest{Name: name, Payload: payload})
	}
	return config, nil
}

// Poll override entries of a spec, useful to dump the effective cycle
func PollEntries(spec *dialect.Spec) []PollEntry {
	entries := make([]PollEntry, 0, len(spec.PollCycle))
	for _, req := range spec.PollCycle {
		entries = append(entries, PollEntry{Name: req.Name, Payload: strings.ToUpper(hex.EncodeToString(req.Payload[:]))})
	}
	return entries
}

func (c *Config) String() string {
	return fmt.Sprintf("interface=%s channel=%s dialect=%s interval=%v poll=%d",
		c.Bus.Interface, c.Bus.Channel, c.Rectifier.Dialect, c.Rectifier.UpdateInterval, len(c.Poll))
}
