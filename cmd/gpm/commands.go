package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpm-project/gpm/internal/logger"
	"github.com/gpm-project/gpm/internal/process"
)

// specFlags are the per-process flags shared by start and reload.
type specFlags struct {
	name        string
	workDir     string
	env         []string
	instances   int
	autoRestart bool
	maxMemoryMB uint64
	logDir      string
}

func addSpecFlags(cmd *cobra.Command, f *specFlags) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "process name (default: first word of the command)")
	cmd.Flags().StringVar(&f.workDir, "workdir", "", "working directory")
	cmd.Flags().StringArrayVarP(&f.env, "env", "e", nil, "environment override KEY=VALUE (repeatable)")
	cmd.Flags().IntVarP(&f.instances, "instances", "i", 1, "number of instances")
	cmd.Flags().BoolVar(&f.autoRestart, "autorestart", true, "restart automatically after unexpected exit")
	cmd.Flags().Uint64Var(&f.maxMemoryMB, "max-memory", 0, "memory limit in MB (0 = unlimited)")
	cmd.Flags().StringVar(&f.logDir, "log-dir", "", "per-process log directory override")
}

func (f specFlags) spec(command string) process.Spec {
	return process.Spec{
		Name:        f.name,
		Command:     command,
		WorkDir:     f.workDir,
		Env:         f.env,
		Instances:   f.instances,
		AutoRestart: f.autoRestart,
		MaxMemoryMB: f.maxMemoryMB,
		Log:         logger.Config{Dir: f.logDir},
	}
}

func newStartCmd(gf *GlobalFlags) *cobra.Command {
	var f specFlags
	cmd := &cobra.Command{
		Use:   "start <command...>",
		Short: "Start a command under supervision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(gf)
			if err != nil {
				return err
			}
			c, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}
			spec := f.spec(strings.Join(args, " "))
			if spec.Name == "" {
				spec.Name = process.DefaultName(spec.Command)
			}
			if err := c.Start(cmd.Context(), spec); err != nil {
				return err
			}
			fmt.Printf("Started %s\n", spec.Name)
			return nil
		},
	}
	addSpecFlags(cmd, &f)
	return cmd
}

func newStopCmd(gf *GlobalFlags) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "stop <name>",
		Short: "Gracefully stop a process (it stays registered)",
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
			if err := c.Stop(cmd.Context(), args[0], wait); err != nil {
				return err
			}
			fmt.Printf("Stopped %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "grace period before force kill")
	return cmd
}

func newRestartCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restart <name>",
		Short: "Restart a process with its current configuration",
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
			if err := c.Restart(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Restarted %s\n", args[0])
			return nil
		},
	}
}

func newReloadCmd(gf *GlobalFlags) *cobra.Command {
	var f specFlags
	cmd := &cobra.Command{
		Use:   "reload <name> [command...]",
		Short: "Replace a process's configuration and restart it",
		Args:  cobra.MinimumNArgs(1),
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
			cur, err := c.Show(cmd.Context(), name)
			if err != nil {
				return err
			}
			spec := cur.Spec
			if len(args) > 1 {
				spec.Command = strings.Join(args[1:], " ")
			}
			if cmd.Flags().Changed("workdir") {
				spec.WorkDir = f.workDir
			}
			if cmd.Flags().Changed("env") {
				spec.Env = f.env
			}
			if cmd.Flags().Changed("instances") {
				spec.Instances = f.instances
			}
			if cmd.Flags().Changed("autorestart") {
				spec.AutoRestart = f.autoRestart
			}
			if cmd.Flags().Changed("max-memory") {
				spec.MaxMemoryMB = f.maxMemoryMB
			}
			if cmd.Flags().Changed("log-dir") {
				spec.Log.Dir = f.logDir
			}
			spec.Name = name
			if err := c.Reload(cmd.Context(), spec); err != nil {
				return err
			}
			fmt.Printf("Reloaded %s\n", name)
			return nil
		},
	}
	addSpecFlags(cmd, &f)
	_ = cmd.Flags().MarkHidden("name")
	return cmd
}

func newDeleteCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Force-terminate a process and remove it from the registry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(gf)
			if err != nil {
				return err
			}
			c, err := s.connected(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newListCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List managed processes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(gf)
			if err != nil {
				return err
			}
			c, err := s.connected(cmd.Context())
			if err != nil {
				return err
			}
			statuses, err := c.List(cmd.Context())
			if err != nil {
				return err
			}
			printList(statuses)
			return nil
		},
	}
}

func newShowCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show detailed status of one process",
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
			st, err := c.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printShow(st)
			return nil
		},
	}
}

func newSaveCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Persist the current process list",
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
			if err := c.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Process list saved")
			return nil
		},
	}
}

func newResurrectCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resurrect",
		Short: "Start every process in the saved list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(gf)
			if err != nil {
				return err
			}
			c, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}
			started, err := c.Resurrect(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Resurrected %d process(es)\n", started)
			return nil
		},
	}
}

func newKillCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Stop the daemon and every process it manages",
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
			if err := c.Kill(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Daemon shutting down")
			return nil
		},
	}
}

func newStatusCmd(gf *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
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
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Daemon running (pid %d, version %s)\n", st.PID, st.Version)
			fmt.Printf("Uptime:    %s\n", st.Uptime)
			fmt.Printf("Processes: %d\n", st.Processes)
			return nil
		},
	}
}
