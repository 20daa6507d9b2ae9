package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/dialect"
	"github.com/samsamfire/gor48/pkg/rectifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iniConfig = `
[bus]
interface = virtualcan
channel = localhost:18888

[rectifier]
dialect = C
update_interval = 2s
stale_factor = 8
target_voltage = 53.5
target_current = 30

[limits]
voltage_max = 57

[control]
fan_full = true

[poll]
output voltage = 0175000000000000
input voltage = 01 78
`

const yamlConfig = `
bus:
  interface: socketcan
  channel: can1
rectifier:
  dialect: r48
  update_interval: 10s
  target_voltage: 52
poll:
  - name: voltage
    payload: 01F0000100000000
`

func TestParseINI(t *testing.T) {
	config, err := ParseINI([]byte(iniConfig))
	require.Nil(t, err)
	assert.Equal(t, "virtualcan", config.Bus.Interface)
	assert.Equal(t, "localhost:18888", config.Bus.Channel)
	assert.Equal(t, 2*time.Second, config.Rectifier.UpdateInterval)
	assert.Equal(t, 8, config.Rectifier.StaleFactor)
	require.NotNil(t, config.Rectifier.TargetVoltage)
	assert.Equal(t, 53.5, *config.Rectifier.TargetVoltage)
	assert.Equal(t, 57.0, config.Limits.VoltageMax)
	// Defaults kept for missing keys
	assert.Equal(t, 41.0, config.Limits.VoltageMin)
	assert.True(t, config.Control.FanFull)
	assert.True(t, config.Control.ACOff)

	rc, err := config.RectifierConfig()
	require.Nil(t, err)
	assert.Equal(t, dialect.DialectC, rc.Dialect)
	require.Len(t, rc.PollCycle, 2)
	assert.Equal(t, "output voltage", rc.PollCycle[0].Name)
	assert.Equal(t, [8]byte{0x01, 0x75}, rc.PollCycle[0].Payload)
	assert.Equal(t, [8]byte{0x01, 0x78}, rc.PollCycle[1].Payload)
	assert.True(t, rc.ControlFlags.FanFull)

	spec, err := rc.Spec()
	require.Nil(t, err)
	assert.Equal(t, 8, spec.StaleFactor)
	assert.Len(t, spec.PollCycle, 2)
}

func TestParseYAML(t *testing.T) {
	config, err := ParseYAML([]byte(yamlConfig))
	require.Nil(t, err)
	assert.Equal(t, "can1", config.Bus.Channel)
	assert.Equal(t, 10*time.Second, config.Rectifier.UpdateInterval)
	assert.Nil(t, config.Rectifier.TargetCurrent)
	assert.Equal(t, 62.5, config.Limits.RatedCurrent)

	rc, err := config.RectifierConfig()
	require.Nil(t, err)
	assert.Equal(t, dialect.DialectA, rc.Dialect)
	assert.Equal(t, 52.0, *rc.TargetVoltage)
	assert.Len(t, rc.PollCycle, 1)
}

func TestDefaults(t *testing.T) {
	config := Default()
	assert.Nil(t, config.Validate())
	rc, err := config.RectifierConfig()
	assert.Nil(t, err)
	assert.Nil(t, rc.PollCycle)
	assert.Equal(t, DefaultChannel, config.Bus.Channel)
}

func TestValidateReportsEverything(t *testing.T) {
	_, err := ParseINI([]byte("[rectifier]\ndialect = Z\nupdate_interval = 0s\n[poll]\nbad = zz\n"))
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, r48.ErrIllegalArgument))
	assert.True(t, errors.Is(err, r48.ErrUnknownDialect))
	assert.Contains(t, err.Error(), "update interval")
	assert.Contains(t, err.Error(), "poll request 0 (bad)")
}

func TestParsePayload(t *testing.T) {
	payload, err := parsePayload("0x01 0xF0 00 05")
	assert.Nil(t, err)
	assert.Equal(t, [8]byte{0x01, 0xF0, 0x00, 0x05}, payload)
	_, err = parsePayload("010203040506070809")
	assert.NotNil(t, err)
	_, err = parsePayload("")
	assert.NotNil(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "r48.ini")
	yamlPath := filepath.Join(dir, "r48.yaml")
	require.Nil(t, os.WriteFile(iniPath, []byte(iniConfig), 0o644))
	require.Nil(t, os.WriteFile(yamlPath, []byte(yamlConfig), 0o644))

	config, err := Load(iniPath)
	assert.Nil(t, err)
	assert.Equal(t, "C", config.Rectifier.Dialect)
	config, err = Load(yamlPath)
	assert.Nil(t, err)
	assert.Equal(t, "r48", config.Rectifier.Dialect)

	_, err = Load(filepath.Join(dir, "missing.ini"))
	assert.NotNil(t, err)
}

func TestPollEntries(t *testing.T) {
	spec, _ := dialect.Get(dialect.DialectA)
	entries := PollEntries(spec)
	assert.Len(t, entries, 5)
	assert.Equal(t, "01F0000100000000", entries[0].Payload)
}

func TestUpdateIntervalNotPositive(t *testing.T) {
	for _, value := range []string{"0s", "-5s"} {
		_, err := ParseINI([]byte("[rectifier]\nupdate_interval = " + value + "\n"))
		require.NotNil(t, err, value)
		assert.True(t, errors.Is(err, r48.ErrIllegalArgument))
		assert.Contains(t, err.Error(), "update interval")
	}
	_, err := ParseINI([]byte("[rectifier]\nupdate_interval = soon\n"))
	assert.NotNil(t, err)

	config, err := ParseINI([]byte("[rectifier]\ndialect = B\n"))
	require.Nil(t, err)
	assert.Equal(t, rectifier.DefaultUpdateInterval, config.Rectifier.UpdateInterval)
}

func TestInputCurrentMaxAndVoltageCodes(t *testing.T) {
	config, err := ParseINI([]byte("[rectifier]\nswap_voltage_codes = true\n[limits]\ninput_current_max = 12.5\n"))
	require.Nil(t, err)
	assert.Equal(t, 12.5, config.Limits.InputCurrentMax)

	rc, err := config.RectifierConfig()
	require.Nil(t, err)
	assert.Equal(t, 12.5, rc.Limits.InputCurrentMax)
	assert.True(t, rc.SwapVoltageCodes)
	spec, err := rc.Spec()
	require.Nil(t, err)
	assert.EqualValues(t, 0x24, spec.Codes.VoltageOnline)

	_, err = ParseYAML([]byte("limits:\n  input_current_max: 0\n"))
	assert.True(t, errors.Is(err, r48.ErrIllegalArgument))
}
