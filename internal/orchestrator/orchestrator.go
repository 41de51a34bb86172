package orchestrator

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/storeysplit/internal/closure"
	"github.com/specialistvlad/storeysplit/internal/ctxlog"
	"github.com/specialistvlad/storeysplit/internal/entity"
	"github.com/specialistvlad/storeysplit/internal/hierarchy"
	"github.com/specialistvlad/storeysplit/internal/materializer"
	"github.com/specialistvlad/storeysplit/internal/planner"
	"github.com/specialistvlad/storeysplit/internal/relindex"
	"github.com/specialistvlad/storeysplit/internal/schema"
	"github.com/specialistvlad/storeysplit/internal/sink"
	"github.com/specialistvlad/storeysplit/internal/step"
	"golang.org/x/sync/errgroup"
)

// Config tunes a run.
type Config struct {
	// Workers bounds the number of partitions processed at once.
	Workers int
	// PartitionTimeout, when positive, limits each partition separately.
	PartitionTimeout time.Duration

	KeepRelationships      bool
	IncludeReferencedRoots bool

	// Stem prefixes every artifact name.
	Stem string
	// Source is reported in the summary only.
	Source string
	// Header is copied into every artifact with its FILE_NAME replaced.
	Header step.Header
	// OriginalSize is the size of the source document in bytes.
	OriginalSize int64
}

// Observer is notified once per finished partition. Calls are serialized.
type Observer interface {
	PartitionDone(ctx context.Context, r PartitionReport)
}

// Orchestrator splits one store into per-container artifacts.
type Orchestrator struct {
	store     entity.Store
	profile   *schema.Profile
	sink      sink.Sink
	cfg       Config
	observers []Observer
	now       func() time.Time
}

// New creates an Orchestrator.
func New(store entity.Store, profile *schema.Profile, out sink.Sink, cfg Config, observers ...Observer) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if len(cfg.Header.Records) == 0 {
		cfg.Header = step.DefaultHeader(store.Schema())
	}
	return &Orchestrator{
		store:     store,
		profile:   profile,
		sink:      out,
		cfg:       cfg,
		observers: observers,
		now:       time.Now,
	}
}

// Containers returns every container entity in ascending id order.
func (o *Orchestrator) Containers() []*entity.Entity {
	var out []*entity.Entity
	for _, typ := range o.profile.ContainerTypes {
		out = append(out, o.store.OfType(typ)...)
	}
	slices.SortFunc(out, func(a, b *entity.Entity) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Run processes every container. It returns a *PreconditionError, without
// writing anything, when the store has no containers. Individual partition
// failures are recorded in the summary and do not stop the run. A cancelled
// ctx is returned as the error alongside the partial summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	ctx, logger := ctxlog.With(ctx, "run_id", runID)

	containers := o.Containers()
	if len(containers) == 0 {
		return nil, &PreconditionError{
			Reason: fmt.Sprintf("no containers of type %s found", strings.Join(o.profile.ContainerTypes, ", ")),
		}
	}

	idx, err := relindex.Build(ctx, o.store, o.profile)
	if err != nil {
		return nil, fmt.Errorf("failed to build relationship index: %w", err)
	}

	summary := &Summary{
		RunID:        runID,
		Source:       o.cfg.Source,
		Schema:       o.store.Schema(),
		OriginalSize: o.cfg.OriginalSize,
		Index:        idx.Stats(),
		Containers:   len(containers),
		Started:      o.now(),
	}
	logger.Info("Partitioning started.", "containers", len(containers), "workers", o.cfg.Workers)

	labels := assignLabels(containers, o.profile.LabelAttribute)
	resolver := hierarchy.New(o.store, idx, o.profile)
	engine := closure.New(o.store, o.profile)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(o.cfg.Workers)
	for i, c := range containers {
		g.Go(func() error {
			r := PartitionReport{
				ContainerID: c.ID,
				Name:        DisplayName(c, o.profile.LabelAttribute, i),
				Label:       labels[i],
				Artifact:    ArtifactName(o.cfg.Stem, labels[i]),
			}
			r.Location = o.sink.Location(r.Artifact)
			o.runPartition(ctx, idx, resolver, engine, &r)

			mu.Lock()
			defer mu.Unlock()
			summary.add(r)
			for _, obs := range o.observers {
				obs.PartitionDone(ctx, r)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(summary.Partitions, func(a, b PartitionReport) int {
		return cmp.Compare(a.ContainerID, b.ContainerID)
	})
	summary.Reduction = reduction(summary.OriginalSize, summary.TotalBytes)
	summary.Duration = o.now().Sub(summary.Started)

	logger.Info("Partitioning finished.",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"bytes", summary.TotalBytes,
		"duration", summary.Duration,
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (o *Orchestrator) runPartition(ctx context.Context, idx *relindex.Index, resolver *hierarchy.Resolver, engine *closure.Engine, r *PartitionReport) {
	start := o.now()
	if o.cfg.PartitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.PartitionTimeout)
		defer cancel()
	}
	ctx, logger := ctxlog.With(ctx, "container", r.ContainerID, "label", r.Label)

	r.Err = o.process(ctx, idx, resolver, engine, r)
	r.Duration = o.now().Sub(start)
	if r.Err != nil {
		logger.Error("Partition failed.", "error", r.Err)
		return
	}
	logger.Info("Partition written.",
		"location", r.Location,
		"members", r.Members,
		"roots", r.Roots,
		"closure", r.Closure,
		"bytes", r.Bytes,
	)
}

func (o *Orchestrator) process(ctx context.Context, idx *relindex.Index, resolver *hierarchy.Resolver, engine *closure.Engine, r *PartitionReport) error {
	logger := ctxlog.FromContext(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	chain := resolver.ChainFor(r.ContainerID)
	p := planner.Plan(idx, chain, r.ContainerID, r.Label, planner.Options{KeepRelationships: o.cfg.KeepRelationships})

	res, err := engine.Compute(ctx, p.ExplicitRoots)
	if err != nil {
		return fmt.Errorf("closure: %w", err)
	}
	for o.cfg.IncludeReferencedRoots && len(res.Boundary) > 0 {
		logger.Debug("Promoting referenced roots.", "count", len(res.Boundary))
		p.ExplicitRoots = p.ExplicitRoots.Union(res.Boundary)
		if res, err = engine.Compute(ctx, p.ExplicitRoots); err != nil {
			return fmt.Errorf("closure: %w", err)
		}
	}
	p.Closure = res.Closure

	r.Members = len(p.Members)
	r.Roots = len(p.ExplicitRoots)
	r.Closure = len(p.Closure)
	r.Dangling = len(res.Dangling)

	mat, err := materializer.Materialize(ctx, o.store, p.ExplicitRoots, p.Closure, materializer.Options{
		Schema:             o.store.Schema(),
		Profile:            o.profile,
		PruneRelationships: o.cfg.KeepRelationships,
	})
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}
	r.Written = mat.Written
	r.Failed = mat.Failed
	r.Pruned = mat.Pruned

	n, err := o.write(ctx, r.Artifact, mat.Store.All())
	if err != nil {
		return &PartitionWriteError{ContainerID: r.ContainerID, Artifact: r.Location, Err: err}
	}
	r.Bytes = n
	r.Reduction = reduction(o.cfg.OriginalSize, n)
	return nil
}

// write serializes entities into a new artifact. Any failure, including
// cancellation before the artifact is committed, aborts it.
func (o *Orchestrator) write(ctx context.Context, name string, entities []*entity.Entity) (n int64, err error) {
	art, err := o.sink.Create(ctx, name)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if abortErr := art.Abort(); abortErr != nil {
				ctxlog.FromContext(ctx).Warn("Failed to discard partial artifact.", "error", abortErr)
			}
		}
	}()

	cw := &step.CountingWriter{W: art}
	if err := step.Write(cw, o.cfg.Header.WithFileName(name, o.now()), entities); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := art.Commit(ctx); err != nil {
		return 0, err
	}
	return cw.N, nil
}
