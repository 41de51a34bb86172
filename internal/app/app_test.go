package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/storeysplit/internal/orchestrator"
	"github.com/specialistvlad/storeysplit/internal/step"
	"github.com/specialistvlad/storeysplit/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, cfg Config) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	config, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	a, err := NewApp(out, logs, config)
	require.NoError(t, err)
	return a, out, logs
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{InputPath: "model.ifc", WorkerCount: 1, LogFormat: "auto"}},
		{name: "missing input", cfg: Config{WorkerCount: 1}, wantErr: "InputPath"},
		{name: "no workers", cfg: Config{InputPath: "model.ifc"}, wantErr: "WorkerCount"},
		{name: "negative timeout", cfg: Config{InputPath: "model.ifc", WorkerCount: 1, PartitionTimeout: -time.Second}, wantErr: "PartitionTimeout"},
		{name: "bad format", cfg: Config{InputPath: "model.ifc", WorkerCount: 1, LogFormat: "xml"}, wantErr: "LogFormat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.cfg.InputPath, cfg.InputPath)
		})
	}
}

func TestResolveFormat(t *testing.T) {
	assert.Equal(t, "json", resolveFormat("auto", &bytes.Buffer{}))
	assert.Equal(t, "text", resolveFormat("text", &bytes.Buffer{}))
	assert.Equal(t, "json", resolveFormat("json", &bytes.Buffer{}))
}

func TestRun_SplitsIntoStoreys(t *testing.T) {
	// --- Arrange ---
	srcDir, outDir := t.TempDir(), t.TempDir()
	input := testutil.NewTwoStoreys(t).WriteFile(srcDir, "model.ifc")
	reportPath := filepath.Join(outDir, "report.yaml")
	metricsPath := filepath.Join(outDir, "storeysplit.prom")

	a, out, logs := newTestApp(t, Config{
		InputPath:   input,
		OutputDir:   outDir,
		ReportPath:  reportPath,
		MetricsPath: metricsPath,
	})

	// --- Act ---
	err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	for _, name := range []string{"model_Level_1.ifc", "model_Level_2.ifc"} {
		doc, err := step.Load(context.Background(), filepath.Join(outDir, name), step.Options{})
		require.NoError(t, err, name)
		assert.NotZero(t, doc.Store.Len(), name)
	}
	assert.Contains(t, out.String(), "Complete: 2 of 2 partitions written")
	assert.Contains(t, logs.String(), "Input loaded.")

	manifest, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "artifact: model_Level_1.ifc")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `storeysplit_partitions_total{result="ok"} 2`)
}

func TestRun_DefaultOutputNextToInput(t *testing.T) {
	dir := t.TempDir()
	input := testutil.NewTwoStoreys(t).WriteFile(dir, "tower.ifc")

	a, _, _ := newTestApp(t, Config{InputPath: input, Quiet: true})
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(dir, "tower_Level_1.ifc"))
	assert.FileExists(t, filepath.Join(dir, "tower_Level_2.ifc"))
}

func TestRun_QuietPrintsNothing(t *testing.T) {
	dir := t.TempDir()
	input := testutil.NewTwoStoreys(t).WriteFile(dir, "model.ifc")

	a, out, _ := newTestApp(t, Config{InputPath: input, Quiet: true})
	require.NoError(t, a.Run(context.Background()))
	assert.Empty(t, out.String())
}

func TestRun_Directory(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	testutil.NewTwoStoreys(t).WriteFile(srcDir, "a.ifc")
	testutil.NewDanglingRef(t).WriteFile(srcDir, "b.IFC")
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "notes.txt"), []byte("ignored"), 0o600))

	a, _, _ := newTestApp(t, Config{
		InputPath:  srcDir,
		OutputDir:  outDir,
		ReportPath: filepath.Join(outDir, "report.yaml"),
	})
	require.NoError(t, a.Run(context.Background()))

	assert.FileExists(t, filepath.Join(outDir, "a_Level_1.ifc"))
	assert.FileExists(t, filepath.Join(outDir, "a_Level_2.ifc"))
	assert.FileExists(t, filepath.Join(outDir, "b_Ground.ifc"))
	assert.FileExists(t, filepath.Join(outDir, "report_a.yaml"))
	assert.FileExists(t, filepath.Join(outDir, "report_b.yaml"))
}

func TestRun_NoContainers(t *testing.T) {
	srcDir, outDir := t.TempDir(), t.TempDir()
	input := testutil.NoStoreys(t).WriteFile(srcDir, "flat.ifc")

	a, _, _ := newTestApp(t, Config{InputPath: input, OutputDir: outDir})
	err := a.Run(context.Background())

	var precondition *orchestrator.PreconditionError
	require.ErrorAs(t, err, &precondition)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be written without containers")
}

func TestRun_InputErrors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.ifc")
	require.NoError(t, os.WriteFile(broken, []byte("ISO-10303-21;\nHEADER;\nENDSEC;\nDATA;\n#1=IFCWALL(;\n"), 0o600))
	emptyDir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		a, _, _ := newTestApp(t, Config{InputPath: filepath.Join(dir, "nope.ifc")})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("parse failure", func(t *testing.T) {
		a, _, _ := newTestApp(t, Config{InputPath: broken})
		err := a.Run(context.Background())
		var loadErr *step.LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, broken, loadErr.Path)
	})

	t.Run("empty directory", func(t *testing.T) {
		a, _, _ := newTestApp(t, Config{InputPath: emptyDir})
		err := a.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no .ifc files found")
	})
}

func TestRun_Cancelled(t *testing.T) {
	dir := t.TempDir()
	input := testutil.NewTwoStoreys(t).WriteFile(dir, "model.ifc")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, _, _ := newTestApp(t, Config{InputPath: input, Quiet: true})
	err := a.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(dir, "model_Level_1.ifc"))
}

func TestNewApp_InvalidProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`profile "custom" {`), 0o600))

	cfg, err := NewConfig(Config{InputPath: "model.ifc", WorkerCount: 1, ProfilePaths: []string{path}})
	require.NoError(t, err)

	_, err = NewApp(&bytes.Buffer{}, &bytes.Buffer{}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema profiles")
}

func TestReportPath(t *testing.T) {
	assert.Equal(t, "out/report.yaml", reportPath("out/report.yaml", "a", false))
	assert.Equal(t, "out/report_a.yaml", reportPath("out/report.yaml", "a", true))
	assert.Equal(t, "report_a", reportPath("report", "a", true))
}
