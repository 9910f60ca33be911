package engine

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"conflict-pipeline/internal/models"
)

// Tool names understood by the engine
const (
	ToolSelect                 = "Select_analysis"
	ToolXYTableToPoint         = "XYTableToPoint_management"
	ToolCopyRows               = "CopyRows_management"
	ToolDescribe               = "Describe"
	ToolGenerateTessellation   = "GenerateTessellation_management"
	ToolSelectLayerByLocation  = "SelectLayerByLocation_management"
	ToolSpatialJoin            = "SpatialJoin_analysis"
	ToolSpatialAutocorrelation = "SpatialAutocorrelation_stats"
	ToolAverageNearestNeighbor = "AverageNearestNeighbor_stats"
	ToolDensityBasedClustering = "DensityBasedClustering_stats"
	ToolProject                = "Project_management"
	ToolConvertTimeField       = "ConvertTimeField_management"
	ToolCreateSpaceTimeCube    = "CreateSpaceTimeCube_stpm"
	ToolTimeSeriesClustering   = "TimeSeriesClustering_stpm"
)

// Toolbox wraps an Engine with one method per tool
type Toolbox struct {
	engine    Engine
	runID     string
	workspace string
	logger    *logrus.Logger
}

// NewToolbox creates a toolbox stamping every request with runID and workspace
func NewToolbox(engine Engine, runID, workspace string, logger *logrus.Logger) *Toolbox {
	return &Toolbox{
		engine:    engine,
		runID:     runID,
		workspace: workspace,
		logger:    logger,
	}
}

// Call runs a tool with the given params
func (t *Toolbox) Call(ctx context.Context, tool string, params ...Param) (map[string]string, error) {
	req := &Request{
		RunID:     t.runID,
		Tool:      tool,
		Workspace: t.workspace,
		Params:    params,
	}

	resp, err := t.engine.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, m := range resp.Messages {
		t.logger.Infof("[%s] %s", tool, m)
	}
	if resp.Outputs == nil {
		return map[string]string{}, nil
	}
	return resp.Outputs, nil
}

func p(name, value string) Param {
	return Param{Name: name, Value: value}
}

// Select copies features matching a where clause
func (t *Toolbox) Select(ctx context.Context, in, out, where string) error {
	_, err := t.Call(ctx, ToolSelect,
		p("in_features", in), p("out_feature_class", out), p("where_clause", where))
	return err
}

// XYTableToPoint builds a point layer from coordinate columns
func (t *Toolbox) XYTableToPoint(ctx context.Context, table, out, xField, yField string) error {
	_, err := t.Call(ctx, ToolXYTableToPoint,
		p("in_table", table), p("out_feature_class", out), p("x_field", xField), p("y_field", yField))
	return err
}

// CopyRows copies the attribute rows of a layer into a table
func (t *Toolbox) CopyRows(ctx context.Context, in, out string) error {
	_, err := t.Call(ctx, ToolCopyRows, p("in_rows", in), p("out_table", out))
	return err
}

// DescribeExtent returns the extent of a layer
func (t *Toolbox) DescribeExtent(ctx context.Context, layer string) (models.Extent, error) {
	outputs, err := t.Call(ctx, ToolDescribe, p("value", layer), p("property", "extent"))
	if err != nil {
		return models.Extent{}, err
	}
	extent, err := models.ParseExtent(outputs)
	if err != nil {
		return models.Extent{}, fmt.Errorf("describe %s: %w", layer, err)
	}
	return extent, nil
}

// GenerateTessellation tiles an extent with cells of the given shape and size
func (t *Toolbox) GenerateTessellation(ctx context.Context, out string, extent models.Extent, shape, size string) error {
	params := []Param{
		p("Output_Feature_Class", out),
		p("Extent", extent.String()),
		p("Shape_Type", shape),
		p("Size", size),
	}
	if extent.SpatialReference != "" {
		params = append(params, p("Spatial_Reference", extent.SpatialReference))
	}
	_, err := t.Call(ctx, ToolGenerateTessellation, params...)
	return err
}

// SelectLayerByLocation selects features of in related to selecting and
// returns the name of the resulting selection layer
func (t *Toolbox) SelectLayerByLocation(ctx context.Context, in, relationship, selecting string) (string, error) {
	outputs, err := t.Call(ctx, ToolSelectLayerByLocation,
		p("in_layer", in), p("overlap_type", relationship), p("select_features", selecting))
	if err != nil {
		return "", err
	}
	if layer := outputs["out_layer"]; layer != "" {
		return layer, nil
	}
	return in, nil
}

// SpatialJoin joins join features onto target features
func (t *Toolbox) SpatialJoin(ctx context.Context, target, join, out string) error {
	_, err := t.Call(ctx, ToolSpatialJoin,
		p("target_features", target), p("join_features", join), p("out_feature_class", out))
	return err
}

// SpatialAutocorrelation computes Global Moran's I and returns the report values
func (t *Toolbox) SpatialAutocorrelation(ctx context.Context, in, field, report, conceptualization, distance, standardization string) (map[string]string, error) {
	return t.Call(ctx, ToolSpatialAutocorrelation,
		p("Input_Feature_Class", in),
		p("Input_Field", field),
		p("Generate_Report", report),
		p("Conceptualization_of_Spatial_Relationships", conceptualization),
		p("Distance_Method", distance),
		p("Standardization", standardization))
}

// AverageNearestNeighbor computes the nearest neighbour index
func (t *Toolbox) AverageNearestNeighbor(ctx context.Context, in, distance, report string) (map[string]string, error) {
	return t.Call(ctx, ToolAverageNearestNeighbor,
		p("Input_Feature_Class", in), p("Distance_Method", distance), p("Generate_Report", report))
}

// DensityBasedClustering clusters point features
func (t *Toolbox) DensityBasedClustering(ctx context.Context, in, out, method string, minFeatures int) error {
	_, err := t.Call(ctx, ToolDensityBasedClustering,
		p("in_features", in),
		p("output_features", out),
		p("cluster_method", method),
		p("min_features_cluster", strconv.Itoa(minFeatures)))
	return err
}

// Project reprojects a layer to the spatial reference with the given WKID
func (t *Toolbox) Project(ctx context.Context, in, out string, wkid int) error {
	_, err := t.Call(ctx, ToolProject,
		p("in_dataset", in), p("out_dataset", out), p("out_coor_system", strconv.Itoa(wkid)))
	return err
}

// ConvertTimeField parses a string field into a date field
func (t *Toolbox) ConvertTimeField(ctx context.Context, table, field, format, out string) error {
	_, err := t.Call(ctx, ToolConvertTimeField,
		p("in_table", table),
		p("input_time_field", field),
		p("input_time_format", format),
		p("output_time_field", out))
	return err
}

// CreateSpaceTimeCube aggregates points into a netCDF space-time cube
func (t *Toolbox) CreateSpaceTimeCube(ctx context.Context, in, out, timeField, step, distance, shape string) error {
	_, err := t.Call(ctx, ToolCreateSpaceTimeCube,
		p("in_features", in),
		p("output_cube", out),
		p("time_field", timeField),
		p("time_step_interval", step),
		p("distance_interval", distance),
		p("aggregation_shape_type", shape))
	return err
}

// TimeSeriesClustering clusters cube locations by their time series
func (t *Toolbox) TimeSeriesClustering(ctx context.Context, cube, variable, out, characteristic, ignore, popups string) error {
	_, err := t.Call(ctx, ToolTimeSeriesClustering,
		p("in_cube", cube),
		p("analysis_variable", variable),
		p("output_features", out),
		p("characteristic_of_interest", characteristic),
		p("shape_characteristic_to_ignore", ignore),
		p("enable_time_series_popups", popups))
	return err
}
