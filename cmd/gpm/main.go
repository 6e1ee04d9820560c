package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GlobalFlags are the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
	Socket     string
	Port       int
}

func buildRoot() *cobra.Command {
	var g GlobalFlags
	root := &cobra.Command{
		Use:           "gpm",
		Short:         "gpm is a process manager: start, supervise and inspect long-running commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "daemon config file (TOML)")
	root.PersistentFlags().StringVar(&g.Socket, "socket", "", "daemon unix socket path (POSIX)")
	root.PersistentFlags().IntVar(&g.Port, "port", 0, "daemon loopback port (Windows)")

	root.AddCommand(
		newStartCmd(&g),
		newStopCmd(&g),
		newRestartCmd(&g),
		newReloadCmd(&g),
		newDeleteCmd(&g),
		newListCmd(&g),
		newShowCmd(&g),
		newMonitorCmd(&g),
		newLogsCmd(&g),
		newSaveCmd(&g),
		newResurrectCmd(&g),
		newKillCmd(&g),
		newStatusCmd(&g),
		newDaemonCmd(&g),
	)
	return root
}
