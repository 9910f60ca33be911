package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-pipeline/internal/config"
	"conflict-pipeline/internal/engine"
	"conflict-pipeline/internal/models"
	"conflict-pipeline/internal/source"
	"conflict-pipeline/internal/table"
	"conflict-pipeline/internal/workspace"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.StepEvent
}

func (r *recordingPublisher) Publish(event *models.StepEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) statuses(step string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.Step == step {
			out = append(out, e.Status)
		}
	}
	return out
}

type fixture struct {
	dir        string
	dry        *engine.DryRun
	publisher  *recordingPublisher
	events     *table.Memory
	activities *table.Memory
	processor  *Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	f := &fixture{
		dir:       t.TempDir(),
		dry:       engine.NewDryRun(nil),
		publisher: &recordingPublisher{},
		events:    eventsTable(),
		activities: table.NewMemory("RUF_activities_Project.dbf", []table.Field{{Name: "EVENT_DATE"}},
			[][]interface{}{{"5 March 1999"}, {"15 December 2000"}}),
	}
	f.dry.SetOutputs(engine.ToolDescribe, map[string]string{
		"xmin": "-13.3", "ymin": "6.9", "xmax": "-10.2", "ymax": "10",
	})
	f.dry.SetOutputs(engine.ToolSpatialAutocorrelation, map[string]string{"moran_index": "0.41", "p_value": "0.002"})

	cfg := config.Default()
	cfg.Engine.Type = "dryrun"
	ws := workspace.New(f.dir)

	tables := map[string]table.Dataset{
		"Events_init.dbf":            f.events,
		"RUF_activities_Project.dbf": f.activities,
	}
	f.processor = NewProcessor(cfg, Dependencies{
		Toolbox:   engine.NewToolbox(f.dry, "run-1", f.dir, logger),
		Workspace: ws,
		Publisher: f.publisher,
		OpenTable: func(name string) (table.Dataset, error) {
			ds, ok := tables[name]
			if !ok {
				return nil, fmt.Errorf("no table %s", name)
			}
			return ds, nil
		},
		RunID: "run-1",
	}, logger)
	return f
}

func TestProcessor_RunsStepsInOrder(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Events_init.shp", "Events_init.dbf", "Events.shp", "Guinea-Liberia.shp"} {
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte("x"), 0644))
	}

	require.NoError(t, f.processor.Run(context.Background()))

	assert.Equal(t, []string{
		engine.ToolSelect,
		engine.ToolXYTableToPoint,
		engine.ToolCopyRows,
		engine.ToolXYTableToPoint,
		engine.ToolSelect,
		engine.ToolDescribe,
		engine.ToolGenerateTessellation,
		engine.ToolSelectLayerByLocation,
		engine.ToolSpatialJoin,
		engine.ToolSpatialAutocorrelation,
		engine.ToolAverageNearestNeighbor,
		engine.ToolDensityBasedClustering,
		engine.ToolSelect,
		engine.ToolProject,
		engine.ToolConvertTimeField,
		engine.ToolCreateSpaceTimeCube,
		engine.ToolTimeSeriesClustering,
	}, f.dry.Tools())

	// cleaning ran with the default rules
	assert.Equal(t, []interface{}{"Sierra Leone", "Sierra Leone", "Guinea"}, f.events.Column("COUNTRY"))
	assert.Equal(t, []interface{}{-11.78, -11.2, 0.0}, f.events.Column("LONGITUDE"))

	// dates normalized before time conversion
	assert.Equal(t, []interface{}{"05/03/1999", "15/12/2000"}, f.activities.Column("EVENT_DATE"))

	// intermediates removed, outputs kept
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Guinea-Liberia.shp", entries[0].Name())

	assert.Equal(t, []string{models.StepStarted, models.StepSucceeded}, f.publisher.statuses("autocorrelation"))
}

func TestProcessor_DefaultParameters(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.processor.Run(context.Background()))

	reqs := f.dry.Requests()

	where, _ := reqs[0].Param("where_clause")
	assert.Equal(t, "CNTRY_NAME IN ('Guinea', 'Liberia')", where)

	size, _ := reqs[6].Param("Size")
	assert.Equal(t, "36 SquareMiles", size)
	extent, _ := reqs[6].Param("Extent")
	assert.Equal(t, "-13.3 6.9 -10.2 10", extent)

	tbl, _ := reqs[14].Param("in_table")
	assert.Equal(t, "RUF_activities_Project.dbf", tbl)

	step, _ := reqs[15].Param("time_step_interval")
	assert.Equal(t, "1 Months", step)
}

func TestProcessor_StopsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.dry.FailOn(engine.ToolSpatialJoin, "ERROR 000210: Cannot create output")

	err := f.processor.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrToolFailed)
	assert.Contains(t, err.Error(), "join_headquarters")

	tools := f.dry.Tools()
	assert.Equal(t, engine.ToolSpatialJoin, tools[len(tools)-1])
	assert.Equal(t, []string{models.StepStarted, models.StepFailed}, f.publisher.statuses("join_headquarters"))
	assert.Empty(t, f.publisher.statuses("autocorrelation"))
}

func TestProcessor_MissingCleanFieldIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.processor.cfg.Clean.Rules = append(f.processor.cfg.Clean.Rules,
		models.FieldEditRule{Field: "admin2", Value: strPtr("Kenema"), Action: "delete"})

	require.NoError(t, f.processor.Run(context.Background()))
	assert.Len(t, f.dry.Tools(), 17)
}

func TestProcessor_DryRunSkipsLocalSteps(t *testing.T) {
	f := newFixture(t)
	f.processor.dryRun = true

	require.NoError(t, f.processor.Run(context.Background()))

	assert.Equal(t, 0, f.events.Saves())
	assert.Equal(t, 0, f.activities.Saves())
	assert.Equal(t, []string{models.StepStarted, models.StepSucceeded}, f.publisher.statuses("clean_events"))
}

func TestProcessor_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.processor.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.dry.Tools())
}

func TestProcessor_CleansSourceBeforeExport(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dir := t.TempDir()

	db, err := source.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE acled (id INTEGER PRIMARY KEY, country TEXT, actor1 TEXT,
		event_type TEXT, event_date TEXT, longitude REAL, latitude REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO acled VALUES
		(1, 'Sierra Leone', 'RUF', 'Headquarters or base established', '5 March 1999', 11.5, 8.1),
		(2, 'Nigeria', 'RUF', 'Battle-No change of territory', '6 March 1999', 7.4, 9.0)`)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Engine.Type = "dryrun"
	cfg.Source = config.SourceConfig{
		Driver: "sqlite",
		DSN:    ":memory:",
		Query:  `SELECT country, actor1, event_type, event_date, longitude, latitude FROM acled ORDER BY id`,
		Table:  "acled",
		Key:    "id",
	}
	cfg.Clean.Target = "source"

	p := NewProcessor(cfg, Dependencies{
		Toolbox:     engine.NewToolbox(engine.NewDryRun(nil), "run-1", dir, logger),
		Workspace:   workspace.New(dir),
		Cleaner:     NewCleaner(logger, nil),
		Exporter:    source.NewExporter(db, logger),
		SourceTable: table.NewSQL(db, "acled", "id"),
		RunID:       "run-1",
	}, logger)

	steps := p.Steps()
	var names []string
	for _, s := range steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"clean_source", "export_events", "select_neighbors", "events_to_points"}, names[:4])
	assert.NotContains(t, names, "clean_events")

	for _, s := range steps[:2] {
		require.NoError(t, p.runStep(context.Background(), s))
	}

	raw, err := os.ReadFile(filepath.Join(dir, cfg.Inputs.Events))
	require.NoError(t, err)
	assert.Equal(t, "COUNTRY,ACTOR1,EVENT_TYPE,EVENT_DATE,LONGITUDE,LATITUDE\n"+
		"Sierra Leone,RUF,Headquarters or base established,5 March 1999,-11.5,8.1\n", string(raw))
}
