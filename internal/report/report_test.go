package report

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/storeysplit/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleSummary() *orchestrator.Summary {
	return &orchestrator.Summary{
		RunID:        "run-1",
		Source:       "model.ifc",
		Schema:       "IFC4",
		OriginalSize: 10 * mib,
		Containers:   2,
		Succeeded:    1,
		Failed:       1,
		TotalBytes:   2 * mib,
		Reduction:    80,
		Started:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Duration:     1500 * time.Millisecond,
		Partitions: []orchestrator.PartitionReport{
			{ContainerID: 10, Name: "Level 1", Artifact: "model_Level_1.ifc", Location: "out/model_Level_1.ifc",
				Members: 2, Roots: 9, Closure: 30, Written: 39, Bytes: 2 * mib, Reduction: 80.04},
			{ContainerID: 20, Name: "Level 2", Artifact: "model_Level_2.ifc", Err: errors.New("disk full")},
		},
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false, 2)
	s := sampleSummary()
	for _, r := range s.Partitions {
		p.PartitionDone(context.Background(), r)
	}
	p.Summary(s)

	want := "[1/2] Level 1: 2 members, 9 roots, 30 closure, 2.00 MB (80.0% smaller than original) -> out/model_Level_1.ifc\n" +
		"[2/2] Level 2: failed: disk full\n" +
		"\nComplete: 1 of 2 partitions written\n" +
		"Original: 10.00 MB\n" +
		"Total output: 2.00 MB\n" +
		"Average per partition: 2.00 MB\n" +
		"Saved 80.0% in total size\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinter_Quiet(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true, 2)
	p.PartitionDone(context.Background(), orchestrator.PartitionReport{Name: "x"})
	p.Summary(sampleSummary())
	assert.Empty(t, buf.String())

	var nilPrinter *Printer
	assert.NotPanics(t, func() { nilPrinter.Summary(sampleSummary()) })
}

func TestManifest(t *testing.T) {
	m := NewManifest(sampleSummary())
	assert.Equal(t, "1.5s", m.Duration)
	require.Len(t, m.Partitions, 2)
	assert.Equal(t, 80.0, m.Partitions[0].ReductionPercent)
	assert.Equal(t, "disk full", m.Partitions[1].Error)

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, m.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-1\n")
	assert.Contains(t, string(data), "  - container: 10\n")

	var back Manifest
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, m.Partitions, back.Partitions)
	assert.Equal(t, m.Index, back.Index)
	assert.True(t, m.Started.Equal(back.Started))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
