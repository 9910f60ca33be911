package engine

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conflict-pipeline/internal/models"
)

func TestToolbox_ParamsInOrder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dry := NewDryRun(nil)
	tb := NewToolbox(dry, "run-7", "/work", logger)
	ctx := context.Background()

	require.NoError(t, tb.DensityBasedClustering(ctx, "RUF_headquarters.shp", "RUF_headquarters_DBSCAN.shp", "DBSCAN", 10))
	require.NoError(t, tb.Project(ctx, "RUF_activities.shp", "RUF_activities_Project.shp", 102011))

	reqs := dry.Requests()
	require.Len(t, reqs, 2)

	assert.Equal(t, "run-7", reqs[0].RunID)
	assert.Equal(t, "/work", reqs[0].Workspace)
	assert.Equal(t, []Param{
		{Name: "in_features", Value: "RUF_headquarters.shp"},
		{Name: "output_features", Value: "RUF_headquarters_DBSCAN.shp"},
		{Name: "cluster_method", Value: "DBSCAN"},
		{Name: "min_features_cluster", Value: "10"},
	}, reqs[0].Params)

	wkid, ok := reqs[1].Param("out_coor_system")
	require.True(t, ok)
	assert.Equal(t, "102011", wkid)
}

func TestToolbox_Tessellation(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dry := NewDryRun(nil)
	tb := NewToolbox(dry, "run", "/work", logger)

	extent := models.Extent{XMin: -13.3, YMin: 6.9, XMax: -10.2, YMax: 10, SpatialReference: "4326"}
	require.NoError(t, tb.GenerateTessellation(context.Background(), "SLtessellation.shp", extent, "HEXAGON", "36 SquareMiles"))

	req := dry.Requests()[0]
	got, _ := req.Param("Extent")
	assert.Equal(t, "-13.3 6.9 -10.2 10", got)
	sr, _ := req.Param("Spatial_Reference")
	assert.Equal(t, "4326", sr)
}

func TestToolbox_SelectLayerByLocationFallsBackToInput(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dry := NewDryRun(nil)
	tb := NewToolbox(dry, "run", "/work", logger)

	layer, err := tb.SelectLayerByLocation(context.Background(), "SLtessellation.shp", "INTERSECT", "RUF_headquarters.shp")
	require.NoError(t, err)
	assert.Equal(t, "SLtessellation.shp", layer)

	dry.SetOutputs(ToolSelectLayerByLocation, map[string]string{"out_layer": "SLtessellation_Layer"})
	layer, err = tb.SelectLayerByLocation(context.Background(), "SLtessellation.shp", "INTERSECT", "RUF_headquarters.shp")
	require.NoError(t, err)
	assert.Equal(t, "SLtessellation_Layer", layer)
}

func TestToolbox_Failure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dry := NewDryRun(nil)
	dry.FailOn(ToolSpatialJoin, "schema lock")
	tb := NewToolbox(dry, "run", "/work", logger)

	err := tb.SpatialJoin(context.Background(), "a", "b", "c")
	assert.ErrorIs(t, err, ErrToolFailed)
}

func TestDryRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDryRun(nil).Run(ctx, &Request{Tool: ToolSelect})
	assert.ErrorIs(t, err, context.Canceled)
}
