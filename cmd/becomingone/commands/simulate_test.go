package commands

import (
	"strings"
	"testing"
)

func TestSimulateRejectsSyncEveryBelowOne(t *testing.T) {
	for _, every := range []int{0, -1} {
		prev := simulateEvery
		simulateEvery = every
		err := SimulateCmd.RunE(SimulateCmd, nil)
		simulateEvery = prev

		if err == nil {
			t.Errorf("sync-every %d: expected error, got nil", every)
			continue
		}
		if !strings.Contains(err.Error(), "--sync-every") {
			t.Errorf("sync-every %d: expected flag error, got %v", every, err)
		}
	}
}
