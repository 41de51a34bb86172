package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/storeysplit/internal/orchestrator"
	"github.com/specialistvlad/storeysplit/internal/relindex"
	"gopkg.in/yaml.v3"
)

// Manifest is the machine readable record of a run.
type Manifest struct {
	RunID            string              `yaml:"run_id"`
	Source           string              `yaml:"source"`
	Schema           string              `yaml:"schema"`
	Started          time.Time           `yaml:"started"`
	Duration         string              `yaml:"duration"`
	OriginalBytes    int64               `yaml:"original_bytes"`
	TotalBytes       int64               `yaml:"total_bytes"`
	ReductionPercent float64             `yaml:"reduction_percent"`
	Succeeded        int                 `yaml:"succeeded"`
	Failed           int                 `yaml:"failed"`
	Index            relindex.Stats      `yaml:"index"`
	Partitions       []ManifestPartition `yaml:"partitions"`
}

// ManifestPartition is one partition entry of a Manifest.
type ManifestPartition struct {
	Container        uint64  `yaml:"container"`
	Name             string  `yaml:"name"`
	Artifact         string  `yaml:"artifact"`
	Location         string  `yaml:"location"`
	Members          int     `yaml:"members"`
	Roots            int     `yaml:"roots"`
	Closure          int     `yaml:"closure"`
	Written          int     `yaml:"written"`
	Skipped          int     `yaml:"skipped,omitempty"`
	Pruned           int     `yaml:"pruned,omitempty"`
	Dangling         int     `yaml:"dangling,omitempty"`
	Bytes            int64   `yaml:"bytes"`
	ReductionPercent float64 `yaml:"reduction_percent"`
	Error            string  `yaml:"error,omitempty"`
}

// NewManifest converts a summary.
func NewManifest(s *orchestrator.Summary) *Manifest {
	m := &Manifest{
		RunID:            s.RunID,
		Source:           s.Source,
		Schema:           s.Schema,
		Started:          s.Started.UTC(),
		Duration:         s.Duration.Round(time.Millisecond).String(),
		OriginalBytes:    s.OriginalSize,
		TotalBytes:       s.TotalBytes,
		ReductionPercent: round1(s.Reduction),
		Succeeded:        s.Succeeded,
		Failed:           s.Failed,
		Index:            s.Index,
		Partitions:       make([]ManifestPartition, 0, len(s.Partitions)),
	}
	for _, r := range s.Partitions {
		p := ManifestPartition{
			Container:        uint64(r.ContainerID),
			Name:             r.Name,
			Artifact:         r.Artifact,
			Location:         r.Location,
			Members:          r.Members,
			Roots:            r.Roots,
			Closure:          r.Closure,
			Written:          r.Written,
			Skipped:          r.Failed,
			Pruned:           r.Pruned,
			Dangling:         r.Dangling,
			Bytes:            r.Bytes,
			ReductionPercent: round1(r.Reduction),
		}
		if r.Err != nil {
			p.Error = r.Err.Error()
		}
		m.Partitions = append(m.Partitions, p)
	}
	return m
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// Encode writes the manifest as YAML.
func (m *Manifest) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the manifest to path through a temp file in the same
// directory.
func (m *Manifest) WriteFile(path string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".partial-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if err := m.Encode(f); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
