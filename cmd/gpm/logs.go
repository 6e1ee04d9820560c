package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCmd(gf *GlobalFlags) *cobra.Command {
	var (
		lines  int
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "logs <name>",
		Short: "Show captured output of a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(gf)
			if err != nil {
				return err
			}
			c, err := s.connected(cmd.Context())
			if err != nil {
				return err
			}
			name := args[0]
			if !follow {
				out, err := c.Logs(cmd.Context(), name, lines)
				if err != nil {
					return err
				}
				for _, line := range out {
					fmt.Println(line)
				}
				return nil
			}
			// Print recent history first, then stream.
			out, err := c.Logs(cmd.Context(), name, lines)
			if err != nil {
				return err
			}
			for _, line := range out {
				fmt.Println(line)
			}
			body, err := c.FollowLogs(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer func() { _ = body.Close() }()
			sc := bufio.NewScanner(body)
			sc.Buffer(make([]byte, 64*1024), 1024*1024)
			for sc.Scan() {
				fmt.Println(sc.Text())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 20, "number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new lines until interrupted")
	return cmd
}
