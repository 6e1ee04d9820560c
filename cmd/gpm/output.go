package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gpm-project/gpm/internal/supervisor"
)

func printList(statuses []supervisor.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSTATE\tPID\tUPTIME\tRESTARTS\tCPU\tMEMORY")
	for _, st := range statuses {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			st.Name,
			st.State,
			pidColumn(st),
			uptimeColumn(st),
			totalRestarts(st),
			cpuColumn(st),
			memColumn(st),
		)
	}
	_ = w.Flush()
}

func printShow(st supervisor.Status) {
	fmt.Printf("Name:        %s\n", st.Name)
	fmt.Printf("State:       %s\n", st.State)
	if st.StateError != "" {
		fmt.Printf("Error:       %s\n", st.StateError)
	}
	fmt.Printf("Command:     %s\n", st.Spec.Command)
	if st.Spec.WorkDir != "" {
		fmt.Printf("WorkDir:     %s\n", st.Spec.WorkDir)
	}
	fmt.Printf("AutoRestart: %v\n", st.Spec.AutoRestart)
	if st.Spec.MaxMemoryMB > 0 {
		fmt.Printf("MemoryLimit: %d MB\n", st.Spec.MaxMemoryMB)
	}
	fmt.Printf("Created:     %s\n", st.CreatedAt.Format(time.RFC3339))
	for _, inst := range st.Instances {
		fmt.Printf("Instance %d:\n", inst.Instance)
		if inst.Running {
			fmt.Printf("  PID:      %d\n", inst.PID)
			fmt.Printf("  Uptime:   %s\n", time.Since(inst.StartedAt).Round(time.Second))
			fmt.Printf("  CPU:      %.1f%%\n", inst.CPUPercent)
			fmt.Printf("  Memory:   %s\n", formatBytes(inst.MemoryBytes))
		} else {
			fmt.Printf("  Running:  false\n")
			if inst.BudgetSpent {
				fmt.Printf("  Parked:   restart budget exhausted\n")
			}
			if inst.ExitError != "" {
				fmt.Printf("  LastExit: %s\n", inst.ExitError)
			}
			if !inst.RestartAt.IsZero() {
				fmt.Printf("  NextTry:  %s\n", inst.RestartAt.Format(time.RFC3339))
			}
		}
		fmt.Printf("  Restarts: %d\n", inst.Restarts)
	}
}

func pidColumn(st supervisor.Status) string {
	var pids []string
	for _, inst := range st.Instances {
		if inst.Running {
			pids = append(pids, strconv.Itoa(inst.PID))
		}
	}
	if len(pids) == 0 {
		return "-"
	}
	return strings.Join(pids, ",")
}

func uptimeColumn(st supervisor.Status) string {
	var oldest time.Time
	for _, inst := range st.Instances {
		if inst.Running && (oldest.IsZero() || inst.StartedAt.Before(oldest)) {
			oldest = inst.StartedAt
		}
	}
	if oldest.IsZero() {
		return "-"
	}
	return time.Since(oldest).Round(time.Second).String()
}

func totalRestarts(st supervisor.Status) int {
	n := 0
	for _, inst := range st.Instances {
		n += inst.Restarts
	}
	return n
}

func cpuColumn(st supervisor.Status) string {
	total, any := 0.0, false
	for _, inst := range st.Instances {
		if inst.Running {
			total += inst.CPUPercent
			any = true
		}
	}
	if !any {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", total)
}

func memColumn(st supervisor.Status) string {
	var total uint64
	any := false
	for _, inst := range st.Instances {
		if inst.Running {
			total += inst.MemoryBytes
			any = true
		}
	}
	if !any {
		return "-"
	}
	return formatBytes(total)
}

func formatBytes(b uint64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
