package cmd

import (
	"fmt"

	"github.com/samsamfire/gor48/pkg/config"
	"github.com/samsamfire/gor48/pkg/simulator"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(simulateCmd, pollCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Answer poll requests like a rectifier, for bench tests on a virtual bus",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openBus(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()
		rc, err := s.conf.RectifierConfig()
		if err != nil {
			return err
		}
		spec, err := rc.Spec()
		if err != nil {
			return err
		}
		device, err := simulator.NewDevice(s.bm, spec, log.StandardLogger())
		if err != nil {
			return err
		}
		defer device.Close()
		log.Infof("simulating dialect %v on %v", spec.Dialect, s.conf.Bus.Channel)
		<-cmd.Context().Done()
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll-cycle",
	Short: "Print the effective poll cycle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}
		rc, err := conf.RectifierConfig()
		if err != nil {
			return err
		}
		spec, err := rc.Spec()
		if err != nil {
			return err
		}
		fmt.Printf("dialect %v, request 0x%08X, rtr %v, stale after %d intervals\n",
			spec.Dialect, spec.RequestID, spec.RequestRTR, spec.StaleFactor)
		for i, entry := range config.PollEntries(spec) {
			fmt.Printf("%d\t%s\t%s\n", i, entry.Payload, entry.Name)
		}
		return nil
	},
}
