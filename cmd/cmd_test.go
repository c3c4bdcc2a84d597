package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cottand/qinfer/internal/config"
	"github.com/cottand/qinfer/lattice"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const satisfiable = `
lattice: {qualifiers: [LOW, HIGH], subtypes: [[LOW, HIGH]]}
slots: [{name: x, kind: variable}]
constraints: [{kind: equality, slots: [x, HIGH]}]
`

const unsatisfiable = `
lattice: {qualifiers: [LOW, HIGH], subtypes: [[LOW, HIGH]]}
slots: [{name: x, kind: variable, at: "Main.java:1"}]
constraints:
  - {kind: equality, slots: [x, HIGH], at: "Main.java:2"}
  - {kind: equality, slots: [x, LOW], at: "Main.java:3"}
`

func testCommand(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	color.NoColor = true
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetContext(context.Background())
	return cmd, out
}

func problemFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "problem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSolveSatisfiable(t *testing.T) {
	cmd, out := testCommand(t)
	target := problemFile(t, satisfiable)
	solutions := filepath.Join(t.TempDir(), "solutions.txt")
	cfg := config.Default()
	cfg.Output.Solutions = solutions

	require.NoError(t, solve(cmd, target, cfg))
	assert.Contains(t, out.String(), "/***********************Solutions**************************/\n")
	assert.Contains(t, out.String(), "SlotID: 1  Annotation: HIGH\n")
	assert.Contains(t, out.String(), "/***********************Statistics*************************/\n")
	assert.Contains(t, out.String(), "backend,maxsat\n")

	require.NoError(t, solve(cmd, target, cfg))
	written, err := os.ReadFile(solutions)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(written, []byte("SlotID: 1  Annotation: HIGH")), "solutions are appended")

	cfg.Output.NoAppend = true
	require.NoError(t, solve(cmd, target, cfg))
	written, err = os.ReadFile(solutions)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(written, []byte("SlotID: 1  Annotation: HIGH")))
}

func TestSolveUnsatisfiable(t *testing.T) {
	cmd, out := testCommand(t)
	cfg := config.Default()
	cfg.Backend = "bitvector"

	err := solve(cmd, problemFile(t, unsatisfiable), cfg)
	assert.ErrorIs(t, err, ErrUnsatisfiable)
	assert.Contains(t, out.String(), "/***********************Explanation************************/\n")
	assert.Contains(t, out.String(), "\t#1 == HIGH \n\t\tMain.java:2\n")
	assert.Contains(t, out.String(), "\t#1\n\t\tMain.java:1\n")
	assert.Contains(t, out.String(), "backend,bitvector\n")

	out.Reset()
	cfg.Explain = false
	err = solve(cmd, problemFile(t, unsatisfiable), cfg)
	assert.ErrorIs(t, err, ErrUnsatisfiable)
	assert.NotContains(t, out.String(), "Explanation")
}

func TestSolveErrors(t *testing.T) {
	cmd, _ := testCommand(t)

	err := solve(cmd, filepath.Join(t.TempDir(), "missing.yaml"), config.Default())
	assert.ErrorContains(t, err, "could not load problem")

	cfg := config.Default()
	cfg.Backend = "z3"
	err = solve(cmd, problemFile(t, satisfiable), cfg)
	assert.ErrorContains(t, err, "unknown backend 'z3'")
}

func TestSettingsFlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("backend = 'bitvector'\njobs = 3\n[output]\nstatistics = 'stats.txt'\n"), 0o644))

	flags := SolveCmd.Flags()
	require.NoError(t, flags.Set("config", path))
	require.NoError(t, flags.Set("jobs", "8"))
	require.NoError(t, flags.Set("no-explain", "true"))

	cfg, err := settings(SolveCmd, filepath.Join(dir, "problem.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "bitvector", cfg.Backend)
	assert.Equal(t, 8, cfg.Jobs)
	assert.Equal(t, "stats.txt", cfg.Output.Statistics)
	assert.False(t, cfg.Explain)
}

func TestPrintLattice(t *testing.T) {
	l, err := lattice.NewBuilder().Qualifier("LOW", "HIGH").Subtype("LOW", "HIGH").Build()
	require.NoError(t, err)
	out := &bytes.Buffer{}
	require.NoError(t, printLattice(out, l))

	assert.Contains(t, out.String(), "LOW <: HIGH, HIGH\ntop: HIGH, bottom: LOW\n")
	assert.Contains(t, out.String(), "join  LOW   HIGH\nLOW   LOW   HIGH\nHIGH  HIGH  HIGH\n")
	assert.Contains(t, out.String(), "meet  LOW  HIGH\nLOW   LOW  LOW\nHIGH  LOW  HIGH\n")
}
