package main

import (
	"testing"
)

func TestVersionCommand(t *testing.T) {
	resetFlags(t)
	output, err := captureOutput(t, func() error {
		versionCmd.Run(versionCmd, nil)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	assertContains(t, output, []string{"arenactl", "commit:", "built:"})
}
