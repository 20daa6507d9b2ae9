package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/avast/retry-go"
	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/can"
	_ "github.com/samsamfire/gor48/pkg/can/socketcan"
	_ "github.com/samsamfire/gor48/pkg/can/virtual"
	"github.com/samsamfire/gor48/pkg/config"
	"github.com/samsamfire/gor48/pkg/rectifier"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "r48ctl",
	Short: "Monitor and control R48 rectifiers over CAN",
	Long: `r48ctl polls Emerson/Vertiv R48 rectifiers for telemetry and sends
output voltage and current limit commands, online (temporary) or offline
(persistent).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

var (
	configPath   string
	canInterface string
	canChannel   string
	dialectName  string
	debug        bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (.ini or .yaml)")
	rootCmd.PersistentFlags().StringVarP(&canInterface, "interface", "i", "", "bus interface e.g. socketcan, socketcanv2, virtualcan")
	rootCmd.PersistentFlags().StringVarP(&canChannel, "channel", "n", "", "bus channel e.g. can0, localhost:18888")
	rootCmd.PersistentFlags().StringVarP(&dialectName, "dialect", "D", "", "rectifier dialect A, B or C")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "debug logging")
}

// Configuration file merged with command line overrides
func loadConfig() (*config.Config, error) {
	conf := config.Default()
	if configPath != "" {
		var err error
		conf, err = config.Load(configPath)
		if err != nil {
			return nil, err
		}
	}
	if canInterface != "" {
		conf.Bus.Interface = canInterface
	}
	if canChannel != "" {
		conf.Bus.Channel = canChannel
	}
	if dialectName != "" {
		conf.Rectifier.Dialect = dialectName
	}
	return conf, conf.Validate()
}

type session struct {
	conf *config.Config
	bus  r48.Bus
	bm   *r48.BusManager
}

func (s *session) Close() {
	if err := s.bus.Disconnect(); err != nil {
		log.Warnf("disconnect : %v", err)
	}
}

// Open the configured bus, connection is retried a few times since
// interfaces are often brought up by the same init system
func openBus(ctx context.Context) (*session, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log.Infof("config %v", conf)
	bus, err := can.NewBus(conf.Bus.Interface, conf.Bus.Channel)
	if err != nil {
		return nil, err
	}
	err = retry.Do(
		func() error { return bus.Connect() },
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.Warnf("connect to %v attempt %d failed : %v", conf.Bus.Channel, n+1, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %v : %w", conf.Bus.Channel, err)
	}
	bm := r48.NewBusManager(bus, log.StandardLogger())
	if err := bus.Subscribe(bm); err != nil {
		bus.Disconnect()
		return nil, err
	}
	return &session{conf: conf, bus: bus, bm: bm}, nil
}

func openRectifier(ctx context.Context) (*session, *rectifier.Rectifier, error) {
	s, err := openBus(ctx)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.conf.RectifierConfig()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	rc.Logger = log.StandardLogger()
	r, err := rectifier.New(s.bm, rc)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, r, nil
}
