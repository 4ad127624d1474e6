package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestWeekCommand(t *testing.T) {
	out, err := runCLI(t, "week", "--date=2025-03-12", "--start-day=0")
	require.NoError(t, err)

	assert.Contains(t, out, "start:  2025-03-09 (Sunday)")
	assert.Contains(t, out, "end:    2025-03-15 (Saturday)")
}

func TestWeekCommand_RejectsBadInput(t *testing.T) {
	_, err := runCLI(t, "week", "--date=2025-03-12", "--start-day=7")
	assert.Error(t, err)

	_, err = runCLI(t, "week", "--date=12/03/2025", "--start-day=1")
	assert.Error(t, err)
}
