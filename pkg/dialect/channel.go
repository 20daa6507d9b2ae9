package dialect

import (
	"fmt"
	"strings"
)

// Telemetry channel reported by a rectifier
type Channel uint8

const (
	InputPower Channel = iota
	InputVoltage
	InputCurrent
	InputTemperature
	InputFrequency
	OutputPower
	OutputVoltage
	OutputCurrent
	OutputCurrentLimit
	OutputTemperature
	Efficiency
	ChannelCount int = iota
)

var channelNames = [ChannelCount]string{
	InputPower:         "input_power",
	InputVoltage:       "input_voltage",
	InputCurrent:       "input_current",
	InputTemperature:   "input_temperature",
	InputFrequency:     "input_frequency",
	OutputPower:        "output_power",
	OutputVoltage:      "output_voltage",
	OutputCurrent:      "output_current",
	OutputCurrentLimit: "output_current_limit",
	OutputTemperature:  "output_temperature",
	Efficiency:         "efficiency",
}

var channelUnits = [ChannelCount]string{
	InputPower:         "W",
	InputVoltage:       "V",
	InputCurrent:       "A",
	InputTemperature:   "°C",
	InputFrequency:     "Hz",
	OutputPower:        "W",
	OutputVoltage:      "V",
	OutputCurrent:      "A",
	OutputCurrentLimit: "",
	OutputTemperature:  "°C",
	Efficiency:         "%",
}

func (c Channel) String() string {
	if int(c) < ChannelCount {
		return channelNames[c]
	}
	return fmt.Sprintf("channel(%d)", uint8(c))
}

func (c Channel) Unit() string {
	if int(c) < ChannelCount {
		return channelUnits[c]
	}
	return ""
}

// All channels in declaration order
func Channels() []Channel {
	channels := make([]Channel, ChannelCount)
	for i := range channels {
		channels[i] = Channel(i)
	}
	return channels
}

// Parse a channel from its name e.g. "output_voltage"
func ParseChannel(name string) (Channel, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range channelNames {
		if n == name {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}
