package main

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/slabkit/kernel"
)

func TestStressReleasesEverything(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	stressWorkers, stressOps, stressKeep = 4, 500, 8

	output, err := captureOutput(t, func() error { return runStress(t.Context()) })
	require.NoError(t, err)

	var report StressReport
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	require.Empty(t, report.Issues)
	for _, st := range report.Registries {
		switch st.Name {
		case kernel.KindThread, kernel.KindInstance:
			require.Zero(t, st.Live, st.Name)
		}
	}
}

func TestStressCanceled(t *testing.T) {
	resetFlags(t)
	quiet = true
	stressWorkers, stressOps = 2, 1000

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := captureOutput(t, func() error { return runStress(ctx) })
	require.ErrorIs(t, err, context.Canceled)
}

func TestStressRejectsBadFlags(t *testing.T) {
	resetFlags(t)
	stressWorkers = 0
	_, err := captureOutput(t, func() error { return runStress(t.Context()) })
	require.Error(t, err)
}
