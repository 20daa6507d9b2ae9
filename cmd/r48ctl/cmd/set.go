package cmd

import (
	"context"
	"strconv"
	"time"

	"github.com/samsamfire/gor48/pkg/codec"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Online commands are applied for about 30 seconds
const keepAlivePeriod = 15 * time.Second

func init() {
	rootCmd.AddCommand(setVoltageCmd, setCurrentCmd, commitCmd, controlCmd, inputLimitCmd)
	for _, c := range []*cobra.Command{setVoltageCmd, setCurrentCmd} {
		c.Flags().BoolP("persistent", "p", false, "offline command, value survives")
		c.Flags().Bool("hold", false, "repeat the online command until interrupted")
	}
	setCurrentCmd.Flags().Bool("amps", false, "value is in amps instead of percent of the rated current")
	// Unset flags keep the value of the [control] config section
	controlCmd.Flags().Bool("dc-off", false, "switch the DC output off")
	controlCmd.Flags().Bool("fan-full", false, "run the fan at full speed")
	controlCmd.Flags().Bool("flash-led", false, "flash the front LED")
	controlCmd.Flags().Bool("ac-off", false, "switch the AC input off")
}

// Send once, or every keepAlivePeriod while hold is set
func repeat(ctx context.Context, hold bool, send func() error) error {
	if err := send(); err != nil {
		return err
	}
	if !hold {
		return nil
	}
	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := send(); err != nil {
				return err
			}
		}
	}
}

var setVoltageCmd = &cobra.Command{
	Use:   "set-voltage <volts>",
	Short: "Set the output voltage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		persistent, _ := cmd.Flags().GetBool("persistent")
		hold, _ := cmd.Flags().GetBool("hold")
		s, r, err := openRectifier(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return repeat(cmd.Context(), hold && !persistent, func() error {
			log.Infof("set output voltage %v V (persistent %v)", value, persistent)
			return r.SetOutputVoltage(value, persistent)
		})
	},
}

var setCurrentCmd = &cobra.Command{
	Use:   "set-current <value>",
	Short: "Set the maximum output current, in percent of the rated current by default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		persistent, _ := cmd.Flags().GetBool("persistent")
		hold, _ := cmd.Flags().GetBool("hold")
		amps, _ := cmd.Flags().GetBool("amps")
		s, r, err := openRectifier(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return repeat(cmd.Context(), hold && !persistent, func() error {
			log.Infof("set max output current %v (amps %v, persistent %v)", value, amps, persistent)
			if amps {
				return r.SetMaxOutputCurrentAmps(value, persistent)
			}
			return r.SetMaxOutputCurrent(value, persistent)
		})
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Store the configured target voltage and current as offline values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, r, err := openRectifier(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		voltage, voltageSet, current, currentSet := r.Targets()
		if !voltageSet && !currentSet {
			log.Warn("no target_voltage or target_current configured, nothing to commit")
		}
		log.Infof("committing voltage %v (%v), current %v (%v)", voltage, voltageSet, current, currentSet)
		return r.CommitOfflineValues()
	},
}

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send the system control flags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, r, err := openRectifier(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		flags := controlFlags(cmd, r.ControlFlags())
		log.Infof("control flags x%02x", flags.Byte())
		return r.SetControlFlags(flags)
	},
}

// Overlay the flags given on the command line onto the configured ones
func controlFlags(cmd *cobra.Command, configured codec.ControlFlags) codec.ControlFlags {
	flags := configured
	for name, field := range map[string]*bool{
		"dc-off":    &flags.DCOff,
		"fan-full":  &flags.FanFull,
		"flash-led": &flags.FlashLED,
		"ac-off":    &flags.ACOff,
	} {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetBool(name)
		}
	}
	return flags
}

var inputLimitCmd = &cobra.Command{
	Use:   "input-limit <amps>",
	Short: "Limit the AC input current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amps, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		s, r, err := openRectifier(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		return r.SetInputCurrentLimit(amps)
	},
}
