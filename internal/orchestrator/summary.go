package orchestrator

import (
	"time"

	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/relindex"
)

// PartitionReport describes the outcome of one partition.
type PartitionReport struct {
	ContainerID entity.ID
	Name        string
	Label       string
	Artifact    string
	Location    string

	Members  int
	Roots    int
	Closure  int
	Written  int
	Failed   int
	Pruned   int
	Dangling int

	Bytes     int64
	Reduction float64 // percent of the original size saved
	Duration  time.Duration

	Err error
}

// OK reports whether the artifact was written.
func (r PartitionReport) OK() bool { return r.Err == nil }

// Summary aggregates a whole run.
type Summary struct {
	RunID        string
	Source       string
	Schema       string
	OriginalSize int64
	Index        relindex.Stats

	Containers int
	Succeeded  int
	Failed     int
	TotalBytes int64
	Reduction  float64

	Started  time.Time
	Duration time.Duration

	Partitions []PartitionReport // ascending container id
}

// OK reports whether at least one partition succeeded.
func (s *Summary) OK() bool { return s.Succeeded > 0 }

// AverageBytes returns the mean artifact size of the successful partitions.
func (s *Summary) AverageBytes() int64 {
	if s.Succeeded == 0 {
		return 0
	}
	return s.TotalBytes / int64(s.Succeeded)
}

func (s *Summary) add(r PartitionReport) {
	s.Partitions = append(s.Partitions, r)
	if r.OK() {
		s.Succeeded++
		s.TotalBytes += r.Bytes
	} else {
		s.Failed++
	}
}

func reduction(original, size int64) float64 {
	if original <= 0 {
		return 0
	}
	return (1 - float64(size)/float64(original)) * 100
}
