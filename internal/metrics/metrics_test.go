package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
	require.NoError(t, Register(prometheus.NewRegistry()))
}

func TestHelpersAfterRegister(t *testing.T) {
	_ = Register(prometheus.NewRegistry())
	// None of these may panic once registered.
	IncStart("p")
	IncStop("p")
	IncRestart("p")
	IncBudgetExhausted("p")
	RecordStateTransition("p", "stopped", "starting")
	SetRunningInstances("p", 2)
	SetUsage("p", "0", 12.5, 1024)
}
