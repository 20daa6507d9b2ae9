package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	r48 "github.com/samsamfire/gor48"
	"github.com/samsamfire/gor48/pkg/dialect"
	"github.com/samsamfire/gor48/pkg/rectifier"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgHiYellow).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
)

// Drivers able to drop unrelated traffic before it reaches the process
type identifierFilter interface {
	FilterIdentifiers(identifiers ...uint32) error
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Duration("summary", 0, "print a summary of every channel at this period, 0 disables")
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the rectifier and print telemetry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, r, err := openRectifier(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		defer r.Close()
		if filter, ok := s.bus.(identifierFilter); ok {
			if err := filter.FilterIdentifiers(r.Spec().TelemetryID); err != nil {
				log.Warnf("telemetry filter not applied : %v", err)
			}
		}

		r.OnUpdate(func(channel dialect.Channel, value float64, known bool) {
			fmt.Println(formatReading(channel, value, known))
		})
		summary, _ := cmd.Flags().GetDuration("summary")

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return runTicks(ctx, r, s.conf.Rectifier.UpdateInterval)
		})
		if summary > 0 {
			g.Go(func() error {
				return runSummary(ctx, r, s.bm, summary)
			})
		}
		return g.Wait()
	},
}

func formatReading(channel dialect.Channel, value float64, known bool) string {
	if !known {
		return fmt.Sprintf("%-22s %s", green(channel.String()), red("unknown"))
	}
	return fmt.Sprintf("%-22s %s", green(channel.String()), yellow("%.2f %s", value, channel.Unit()))
}

// Drive the rectifier until the context is done, send errors are logged and
// the loop keeps going, a silent bus shows up as a stale link
func runTicks(ctx context.Context, r *rectifier.Rectifier, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if err := r.Tick(); err != nil {
		log.Warnf("tick : %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Tick(); err != nil {
				log.Warnf("tick : %v", err)
			}
		}
	}
}

func runSummary(ctx context.Context, r *rectifier.Rectifier, bm *r48.BusManager, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tx, rx := bm.Stats()
			fmt.Printf("frames tx %d rx %d, stale %v\n", tx, rx, r.Stale())
			snapshot := r.Snapshot()
			for _, ch := range dialect.Channels() {
				reading := snapshot[ch]
				fmt.Println(formatReading(ch, reading.Value, reading.Valid))
			}
		}
	}
}
