package processor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/config"
	"conflict-pipeline/internal/engine"
	"conflict-pipeline/internal/metrics"
	"conflict-pipeline/internal/models"
	"conflict-pipeline/internal/source"
	"conflict-pipeline/internal/table"
	"conflict-pipeline/internal/workspace"
)

// Publisher interface for publishing step events
type Publisher interface {
	Publish(event *models.StepEvent) error
}

// Step is one stage of the pipeline
type Step struct {
	Name  string
	Local bool // edits attribute tables directly instead of calling the engine
	Run   func(ctx context.Context) (map[string]string, error)
}

// Dependencies wires a Processor
type Dependencies struct {
	Toolbox     *engine.Toolbox
	Workspace   *workspace.Workspace
	Cleaner     *Cleaner
	Transformer *Transformer // optional
	Publisher   Publisher    // optional
	Metrics     *metrics.Metrics
	Exporter    *source.Exporter                         // optional, materializes the events CSV from a database
	SourceTable table.Dataset                            // optional, cleaned in place before export instead of the point table
	OpenTable   func(name string) (table.Dataset, error) // defaults to files in the workspace
	RunID       string
	DryRun      bool // skip local table edits
}

// Processor runs the analysis steps in order, stopping at the first failure
type Processor struct {
	cfg         *config.Config
	toolbox     *engine.Toolbox
	workspace   *workspace.Workspace
	cleaner     *Cleaner
	transformer *Transformer
	publisher   Publisher
	metrics     *metrics.Metrics
	exporter    *source.Exporter
	sourceTable table.Dataset
	openTable   func(name string) (table.Dataset, error)
	runID       string
	dryRun      bool
	logger      *logrus.Logger
}

// NewProcessor creates a new pipeline processor
func NewProcessor(cfg *config.Config, deps Dependencies, logger *logrus.Logger) *Processor {
	p := &Processor{
		cfg:         cfg,
		toolbox:     deps.Toolbox,
		workspace:   deps.Workspace,
		cleaner:     deps.Cleaner,
		transformer: deps.Transformer,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		exporter:    deps.Exporter,
		sourceTable: deps.SourceTable,
		openTable:   deps.OpenTable,
		runID:       deps.RunID,
		dryRun:      deps.DryRun,
		logger:      logger,
	}
	if p.metrics == nil {
		p.metrics = metrics.New()
	}
	if p.cleaner == nil {
		p.cleaner = NewCleaner(logger, p.metrics)
	}
	if p.openTable == nil {
		p.openTable = func(name string) (table.Dataset, error) {
			return table.Open(p.workspace.Path(name))
		}
	}
	return p
}

// Run executes every step in order
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Infof("Starting pipeline run %s in %s", p.runID, p.workspace.Dir())
	started := time.Now()

	for _, step := range p.Steps() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline stopped before %s: %w", step.Name, err)
		}
		if err := p.runStep(ctx, step); err != nil {
			return err
		}
	}

	p.metrics.MarkSuccess()
	p.logger.Infof("Pipeline run %s finished in %s", p.runID, time.Since(started).Round(time.Millisecond))
	return nil
}

func (p *Processor) runStep(ctx context.Context, step Step) error {
	start := time.Now()
	p.publish(&models.StepEvent{
		RunID:     p.runID,
		Step:      step.Name,
		Status:    models.StepStarted,
		StartedAt: start,
	})

	var outputs map[string]string
	var err error
	if p.dryRun && step.Local {
		p.logger.Infof("Skipping %s (dry run)", step.Name)
	} else {
		p.logger.Infof("Running step %s", step.Name)
		outputs, err = step.Run(ctx)
	}

	elapsed := time.Since(start)
	event := &models.StepEvent{
		RunID:      p.runID,
		Step:       step.Name,
		Status:     models.StepSucceeded,
		StartedAt:  start,
		DurationMs: elapsed.Milliseconds(),
		Outputs:    outputs,
	}
	if err != nil {
		event.Status = models.StepFailed
		event.Error = err.Error()
	}
	p.publish(event)
	p.metrics.ObserveStep(step.Name, event.Status, elapsed.Seconds())

	if err != nil {
		return fmt.Errorf("step %s failed: %w", step.Name, err)
	}
	p.logger.Debugf("Step %s done in %s", step.Name, elapsed)
	return nil
}

func (p *Processor) publish(event *models.StepEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(event); err != nil {
		p.logger.Errorf("Error publishing step event: %v", err)
	}
}

// Steps returns the pipeline in execution order
func (p *Processor) Steps() []Step {
	in := p.cfg.Inputs
	a := p.cfg.Analysis
	tb := p.toolbox

	var steps []Step
	if p.exporter != nil {
		if p.sourceTable != nil {
			steps = append(steps, Step{Name: "clean_source", Local: true, Run: func(ctx context.Context) (map[string]string, error) {
				return p.clean(p.sourceTable)
			}})
		}
		steps = append(steps, Step{Name: "export_events", Local: true, Run: func(ctx context.Context) (map[string]string, error) {
			n, err := p.exporter.Export(ctx, p.cfg.Source.Query, p.workspace.Path(in.Events))
			return map[string]string{"exported": strconv.Itoa(n)}, err
		}})
	}

	steps = append(steps, Step{Name: "select_neighbors", Run: func(ctx context.Context) (map[string]string, error) {
		return nil, tb.Select(ctx, in.Territories, a.NeighborsOutput, a.NeighborsWhere)
	}})
	steps = append(steps, Step{Name: "events_to_points", Run: func(ctx context.Context) (map[string]string, error) {
		return nil, tb.XYTableToPoint(ctx, in.Events, a.EventsInit, a.XField, a.YField)
	}})
	if p.sourceTable == nil {
		steps = append(steps, Step{Name: "clean_events", Local: true, Run: p.cleanEvents})
	}

	return append(steps, []Step{
		{Name: "copy_events", Run: func(ctx context.Context) (map[string]string, error) {
			return nil, tb.CopyRows(ctx, a.EventsInit, a.EventsCSV)
		}},
		{Name: "reload_events", Run: func(ctx context.Context) (map[string]string, error) {
			return nil, tb.XYTableToPoint(ctx, a.EventsCSV, a.Events, a.XField, a.YField)
		}},
		{Name: "select_headquarters", Run: func(ctx context.Context) (map[string]string, error) {
			return nil, tb.Select(ctx, a.Events, a.Headquarters, a.HeadquartersWhere)
		}},
		{Name: "tessellate", Run: func(ctx context.Context) (map[string]string, error) {
			extent, err := tb.DescribeExtent(ctx, in.AdminRegions)
			if err != nil {
				return nil, err
			}
			t := a.Tessellation
			if err := tb.GenerateTessellation(ctx, t.Output, extent, t.Shape, t.Size); err != nil {
				return nil, err
			}
			return map[string]string{"extent": extent.String()}, nil
		}},
		{Name: "join_headquarters", Run: func(ctx context.Context) (map[string]string, error) {
			selection, err := tb.SelectLayerByLocation(ctx, a.Tessellation.Output, a.Relationship, a.Headquarters)
			if err != nil {
				return nil, err
			}
			return nil, tb.SpatialJoin(ctx, selection, a.Headquarters, a.HeadquarterCounts)
		}},
		{Name: "autocorrelation", Run: func(ctx context.Context) (map[string]string, error) {
			c := a.Autocorrelation
			return tb.SpatialAutocorrelation(ctx, a.HeadquarterCounts, c.Field, c.Report, c.Conceptualization, c.Distance, c.Standardization)
		}},
		{Name: "nearest_neighbor", Run: func(ctx context.Context) (map[string]string, error) {
			return tb.AverageNearestNeighbor(ctx, a.Headquarters, a.NearestNeighbor.Distance, a.NearestNeighbor.Report)
		}},
		{Name: "dbscan", Run: func(ctx context.Context) (map[string]string, error) {
			d := a.DBSCAN
			return nil, tb.DensityBasedClustering(ctx, a.Headquarters, d.Output, d.Method, d.MinFeatures)
		}},
		{Name: "select_activities", Run: func(ctx context.Context) (map[string]string, error) {
			if err := tb.Select(ctx, a.Events, a.Activities, a.ActivitiesWhere); err != nil {
				return nil, err
			}
			return nil, tb.Project(ctx, a.Activities, a.ProjectedActivities, a.ProjectionWKID)
		}},
		{Name: "normalize_dates", Local: true, Run: p.normalizeDates},
		{Name: "convert_time", Run: func(ctx context.Context) (map[string]string, error) {
			return nil, tb.ConvertTimeField(ctx, attributeTable(a.ProjectedActivities), a.DateField, a.DateFormat, a.ConvertedDateField)
		}},
		{Name: "space_time_cube", Run: func(ctx context.Context) (map[string]string, error) {
			c := a.Cube
			return nil, tb.CreateSpaceTimeCube(ctx, a.ProjectedActivities, c.Output, a.ConvertedDateField, c.TimeStep, c.Distance, c.Shape)
		}},
		{Name: "time_series_clustering", Run: func(ctx context.Context) (map[string]string, error) {
			c := a.Clustering
			return nil, tb.TimeSeriesClustering(ctx, a.Cube.Output, c.Variable, c.Output, c.Characteristic, c.Ignore, c.Popups)
		}},
		{Name: "cleanup", Run: func(ctx context.Context) (map[string]string, error) {
			n, err := Cleanup(p.workspace, p.cfg.Cleanup, p.logger)
			return map[string]string{"deleted": strconv.Itoa(n)}, err
		}},
	}...)
}

func (p *Processor) cleanEvents(ctx context.Context) (map[string]string, error) {
	ds, err := p.openTable(p.cfg.Clean.Target)
	if err != nil {
		return nil, err
	}
	return p.clean(ds)
}

// clean applies every configured rule and then the optional script to ds
func (p *Processor) clean(ds table.Dataset) (map[string]string, error) {
	var deleted, flipped, skipped int
	for _, rule := range p.cfg.Clean.Rules {
		stats, err := p.cleaner.FixEvents(ds, rule)
		if err != nil {
			return nil, err
		}
		deleted += stats.Deleted
		flipped += stats.Flipped
		if stats.Skipped {
			skipped++
		}
	}

	outputs := map[string]string{
		"deleted":       strconv.Itoa(deleted),
		"sign_switched": strconv.Itoa(flipped),
		"rules_skipped": strconv.Itoa(skipped),
	}

	if p.transformer != nil {
		stats, err := p.transformer.Apply(ds)
		if err != nil {
			return outputs, err
		}
		outputs["script_deleted"] = strconv.Itoa(stats.Deleted)
		outputs["script_updated"] = strconv.Itoa(stats.Updated)
	}
	return outputs, nil
}

func (p *Processor) normalizeDates(ctx context.Context) (map[string]string, error) {
	a := p.cfg.Analysis
	ds, err := p.openTable(attributeTable(a.ProjectedActivities))
	if err != nil {
		return nil, err
	}
	n, err := p.cleaner.NormalizeDates(ds, a.DateField)
	if err != nil {
		return nil, err
	}
	return map[string]string{"normalized": strconv.Itoa(n)}, nil
}

// attributeTable maps a shapefile layer to its .dbf table
func attributeTable(layer string) string {
	return strings.TrimSuffix(layer, filepath.Ext(layer)) + ".dbf"
}
