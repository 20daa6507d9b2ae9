package cmd

import (
	"testing"

	"github.com/samsamfire/gor48/pkg/codec"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func newControlCmd() *cobra.Command {
	c := &cobra.Command{Use: "control"}
	for _, name := range []string{"dc-off", "fan-full", "flash-led", "ac-off"} {
		c.Flags().Bool(name, false, "")
	}
	return c
}

func TestControlFlagsKeepConfigured(t *testing.T) {
	configured := codec.ControlFlags{FanFull: true}
	assert.Equal(t, configured, controlFlags(newControlCmd(), configured))
}

func TestControlFlagsOverride(t *testing.T) {
	c := newControlCmd()
	assert.Nil(t, c.Flags().Set("fan-full", "false"))
	assert.Nil(t, c.Flags().Set("flash-led", "true"))
	flags := controlFlags(c, codec.ControlFlags{FanFull: true, ACOff: true})
	assert.Equal(t, codec.ControlFlags{FlashLED: true, ACOff: true}, flags)
}

func TestControlCmdFlagsRegistered(t *testing.T) {
	for _, name := range []string{"dc-off", "fan-full", "flash-led", "ac-off"} {
		assert.NotNil(t, controlCmd.Flags().Lookup(name), name)
	}
}
