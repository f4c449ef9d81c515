// Package loader orchestrates a full import: scan, decode, expand, convert,
// and optionally reproject. It owns no policy beyond the spec'd fatality
// rules; everything recoverable lands in the diagnostics.
package loader

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geo-loader/internal/crs"
	"github.com/sells-group/geo-loader/internal/diag"
	"github.com/sells-group/geo-loader/internal/dxf"
	"github.com/sells-group/geo-loader/internal/geometry"
	"github.com/sells-group/geo-loader/internal/shapefile"
)

// defaultWorkers bounds parallel reprojection when Options.Workers is unset.
const defaultWorkers = 4

// Options controls a single import run.
type Options struct {
	// SourceCRS overrides coordinate system detection. Empty means detect
	// from the drawing's coordinate envelope.
	SourceCRS string
	// TargetCRS requests reprojection of every feature. Empty means keep
	// source coordinates.
	TargetCRS string
	// Workers bounds parallel reprojection. Zero means defaultWorkers.
	Workers int
	// Manager supplies coordinate transforms. Required when TargetCRS is
	// set; an uninitialized manager is initialized on first use.
	Manager *crs.Manager
}

// Result is the outcome of one import run.
type Result struct {
	ImportID    string                `json:"importId"`
	Features    []*geojson.Feature    `json:"features"`
	Bounds      *geometry.Bounds      `json:"bounds,omitempty"`
	SourceCRS   string                `json:"sourceCrs,omitempty"`
	DetectedCRS string                `json:"detectedCrs,omitempty"`
	Imported    int                   `json:"imported"`
	Failed      int                   `json:"failed"`
	Diagnostics []diag.Record         `json:"diagnostics,omitempty"`
	Layers      map[string]*dxf.Layer `json:"-"`
	Blocks      []string              `json:"-"`
}

// Collection packages the result's features as a GeoJSON FeatureCollection.
func (r *Result) Collection() *geojson.FeatureCollection {
	return geometry.Collection(r.Features)
}

// Import converts DXF text into geographic features. Fatal errors are limited
// to unusable input (empty, no recognizable structure) and coordinate system
// bootstrap failure; entity-level problems are reported and skipped.
func Import(ctx context.Context, content string, opts Options) (*Result, error) {
	reporter := diag.NewReporter()
	importID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "loader"),
		zap.String("importId", importID),
	)

	doc, err := dxf.Parse(content, reporter)
	if err != nil {
		return nil, err
	}

	entities := dxf.Expand(doc, reporter)

	res := &Result{
		ImportID: importID,
		Layers:   doc.Layers,
	}
	for name := range doc.Blocks {
		res.Blocks = append(res.Blocks, name)
	}
	sort.Strings(res.Blocks)

	for _, e := range entities {
		f := geometry.Convert(e, reporter)
		if f == nil {
			res.Failed++
			continue
		}
		res.Features = append(res.Features, f)
		res.Imported++
	}

	finishResult(ctx, res, reporter, opts, log)
	return res, nil
}

// ImportShapefile runs the shapefile path through the same bounds, detection
// and reprojection machinery as the DXF path.
func ImportShapefile(ctx context.Context, shpPath string, opts Options) (*Result, error) {
	reporter := diag.NewReporter()
	importID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "loader"),
		zap.String("importId", importID),
	)

	sr, err := shapefile.Read(shpPath, reporter)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ImportID: importID,
		Features: sr.Features,
		Imported: sr.Imported,
		Failed:   sr.Skipped,
	}
	finishResult(ctx, res, reporter, opts, log)
	return res, nil
}

// finishResult computes bounds, resolves the source CRS, reprojects when asked
// and snapshots diagnostics. Mutates res in place.
func finishResult(ctx context.Context, res *Result, reporter *diag.Reporter, opts Options, log *zap.Logger) {
	if b, err := geometry.FeatureBounds(res.Features); err == nil {
		res.Bounds = &b
		if code, ok := crs.Detect(b); ok {
			res.DetectedCRS = code
		} else {
			reporter.Info(diag.CodeCRSDetection, "coordinate system not recognized from extent")
		}
	}

	res.SourceCRS = opts.SourceCRS
	if res.SourceCRS == "" {
		res.SourceCRS = res.DetectedCRS
	}

	if opts.TargetCRS != "" {
		reproject(ctx, res, reporter, opts, log)
	}

	res.Diagnostics = reporter.Records()
	log.Info("import finished",
		zap.Int("imported", res.Imported),
		zap.Int("failed", res.Failed),
		zap.String("sourceCrs", res.SourceCRS),
		zap.String("targetCrs", opts.TargetCRS),
	)
}

// reproject converts every feature to the target system in parallel. A point
// that fails to transform drops its whole feature: features are never passed
// through half-transformed or silently untransformed.
func reproject(ctx context.Context, res *Result, reporter *diag.Reporter, opts Options, log *zap.Logger) {
	// Reprojection that cannot run at all still must not let features pass
	// through in source coordinates.
	if res.SourceCRS == "" {
		reporter.Error(diag.CodeTransformError, "reprojection requested but source coordinate system is unknown")
		dropAll(res)
		return
	}
	if opts.Manager == nil {
		reporter.Error(diag.CodeTransformError, "reprojection requested without a coordinate system manager")
		dropAll(res)
		return
	}
	if err := opts.Manager.Initialize(); err != nil {
		reporter.Error(diag.CodeTransformError, "coordinate system bootstrap failed: %v", err)
		dropAll(res)
		return
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var dropped atomic.Int64
	keep := make([]bool, len(res.Features))

	for i, f := range res.Features {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := reprojectFeature(f, res.SourceCRS, opts.TargetCRS, opts.Manager); err != nil {
				dropped.Add(1)
				reporter.Report(diag.Record{
					Severity: diag.SeverityError,
					Code:     diag.CodeTransformError,
					Message:  "feature dropped: " + err.Error(),
					Context:  map[string]any{"feature": f.ID},
				})
				return nil
			}
			keep[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		reporter.Error(diag.CodeTransformError, "reprojection aborted: %v", err)
	}

	kept := res.Features[:0]
	for i, f := range res.Features {
		if keep[i] {
			kept = append(kept, f)
		}
	}
	res.Features = kept
	res.Failed += int(dropped.Load())
	res.Imported = len(kept)

	if b, err := geometry.FeatureBounds(res.Features); err == nil {
		res.Bounds = &b
	} else {
		res.Bounds = nil
	}

	if n := dropped.Load(); n > 0 {
		log.Warn("features dropped during reprojection", zap.Int64("dropped", n))
	}
}

func dropAll(res *Result) {
	res.Failed += len(res.Features)
	res.Features = nil
	res.Imported = 0
	res.Bounds = nil
}

// reprojectFeature rewrites the feature's flat coordinates in place.
func reprojectFeature(f *geojson.Feature, from, to string, m *crs.Manager) error {
	if f == nil || f.Geometry == nil {
		return eris.New("loader: feature has no geometry")
	}
	flat := f.Geometry.FlatCoords()
	stride := f.Geometry.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		tx, ty, err := m.Transform(flat[i], flat[i+1], from, to)
		if err != nil {
			return err
		}
		flat[i], flat[i+1] = tx, ty
	}
	return nil
}
