package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/storeysplit/internal/app"
	"github.com/specialistvlad/storeysplit/internal/cli"
	"github.com/specialistvlad/storeysplit/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}

func TestRun_ProfileLoadFailure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	profile := filepath.Join(dir, "broken.hcl")
	require.NoError(t, os.WriteFile(profile, []byte(`profile "x" {`), 0o600))
	args := []string{"-profile", profile, filepath.Join(dir, "model.ifc")}

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, args)

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.Code)
}

func TestRun_SplitsModel(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	input := testutil.NewTwoStoreys(t).WriteFile(dir, "house.ifc")
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, &bytes.Buffer{}, []string{"-log-format", "json", input})

	// --- Assert ---
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, "house_Level_1.ifc"))
	require.FileExists(t, filepath.Join(dir, "house_Level_2.ifc"))
	require.Contains(t, out.String(), "Complete: 2 of 2 partitions written")
}

func TestRun_NoStoreysIsFatal(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	input := testutil.NoStoreys(t).WriteFile(dir, "flat.ifc")

	// --- Act ---
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-q", input})

	// --- Assert ---
	require.Error(t, err)
	var exitErr *cli.ExitError
	require.False(t, errors.As(err, &exitErr), "fatal run errors exit with code 1")
	require.NotErrorIs(t, err, app.ErrAllPartitionsFailed)
}
