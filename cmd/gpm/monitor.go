package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newMonitorCmd(gf *GlobalFlags) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live-updating view of all managed processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(gf)
			if err != nil {
				return err
			}
			c, err := s.connected(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				statuses, err := c.List(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				// Clear the screen and repaint the snapshot.
				fmt.Print("\033[2J\033[H")
				fmt.Printf("gpm monitor %s (refresh %s, ctrl-c to quit)\n\n",
					time.Now().Format("15:04:05"), interval)
				printList(statuses)
				select {
				case <-ctx.Done():
					fmt.Println()
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "refresh interval")
	return cmd
}
