package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/analogplace/pkg/cache"
	"github.com/matzehuels/analogplace/pkg/errors"
	"github.com/matzehuels/analogplace/pkg/nlp"
	"github.com/matzehuels/analogplace/pkg/observability"
	"github.com/matzehuels/analogplace/pkg/render/dot"
)

// RenderOptions selects what to draw.
type RenderOptions struct {
	// Graph is objective or gradient.
	Graph string
	// Format is dot or svg.
	Format string
	// Detailed labels task graph nodes with their kind and wave.
	Detailed bool
}

// Validate checks the graph and format names, defaulting an empty format
// to svg.
func (o *RenderOptions) Validate() error {
	if o.Format == "" {
		o.Format = FormatSVG
	}
	if err := errors.ValidateOneOf("graph", o.Graph, ValidGraphs...); err != nil {
		return err
	}
	return errors.ValidateOneOf("format", o.Format, ValidFormats...)
}

// Render draws the task graph named by ro for the problem of opts. The
// graphs are built without solving. The bool result reports a cache hit.
func (r *Runner) Render(ctx context.Context, opts Options, ro RenderOptions) ([]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if err := ro.Validate(); err != nil {
		return nil, false, err
	}

	p, err := r.Load(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	base := r.Keyer.PlacementKey(p.Hash, cache.PlacementOpts(opts.Config))
	key := r.Keyer.ArtifactKey(base, cache.ArtifactKeyOpts{Graph: ro.Graph, Format: ro.Format, Detailed: ro.Detailed})
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "artifact")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "artifact")
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, ro.Format)
	data, err := r.render(ctx, p, opts, ro)
	observability.Pipeline().OnRenderComplete(ctx, ro.Format, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	ttl, _ := opts.Config.Cache.TTLDuration()
	if err := r.Cache.Set(ctx, key, data, ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, "artifact", len(data))
	}
	r.Logger.Info("rendered", "graph", ro.Graph, "format", ro.Format, "bytes", len(data), "duration", time.Since(start))
	return data, false, nil
}

func (r *Runner) render(ctx context.Context, p *Problem, opts Options, ro RenderOptions) ([]byte, error) {
	k, err := r.NewKernel(p, opts, nlp.WithFirstOrder(true))
	if err != nil {
		return nil, err
	}
	if err := k.Prepare(); err != nil {
		return nil, err
	}
	g := k.ObjectiveGraph()
	if ro.Graph == GraphGradient {
		g = k.GradientGraph()
	}
	src, err := dot.TaskGraph(g, dot.Options{Detailed: ro.Detailed})
	if err != nil {
		return nil, err
	}
	if ro.Format == FormatDOT {
		return []byte(src), nil
	}
	return dot.RenderSVG(ctx, src)
}
