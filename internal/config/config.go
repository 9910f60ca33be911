package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"conflict-pipeline/internal/models"
)

type Config struct {
	Workspace string         `yaml:"workspace"` // relative to the current directory
	Inputs    InputsConfig   `yaml:"inputs"`
	Source    SourceConfig   `yaml:"source"`
	Engine    EngineConfig   `yaml:"engine"`
	Clean     CleanConfig    `yaml:"clean"`
	Analysis  AnalysisConfig `yaml:"analysis"`
	Cleanup   []string       `yaml:"cleanup"`
	NATS      NATSConfig     `yaml:"nats"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Logging   LoggingConfig  `yaml:"logging"`
}

type InputsConfig struct {
	Territories  string `yaml:"territories"`   // world/territory boundaries
	AdminRegions string `yaml:"admin_regions"` // administrative boundaries, tessellation extent
	Events       string `yaml:"events"`        // conflict events CSV
}

// SourceConfig optionally materializes the events CSV from a database
type SourceConfig struct {
	Driver string `yaml:"driver"` // mysql, sqlite
	DSN    string `yaml:"dsn"`
	Query  string `yaml:"query"` // must return country, actor1, event_type, event_date, longitude, latitude
	Table  string `yaml:"table"` // table cleaned in place when clean.target is "source"
	Key    string `yaml:"key"`
}

func (s SourceConfig) Enabled() bool {
	return s.DSN != ""
}

type EngineConfig struct {
	Type    string        `yaml:"type"`    // command, nats, dryrun
	Command string        `yaml:"command"` // bridge executable
	Args    []string      `yaml:"args"`
	Subject string        `yaml:"subject"` // nats request subject prefix
	Timeout time.Duration `yaml:"timeout"` // per tool, nats only
}

type CleanConfig struct {
	Target string                 `yaml:"target"` // attribute table, or "source"
	Rules  []models.FieldEditRule `yaml:"rules"`
	Script string                 `yaml:"script"` // optional JavaScript transform(row)
}

type TessellationConfig struct {
	Output string `yaml:"output"`
	Shape  string `yaml:"shape"`
	Size   string `yaml:"size"`
}

type AutocorrelationConfig struct {
	Field             string `yaml:"field"`
	Report            string `yaml:"report"`
	Conceptualization string `yaml:"conceptualization"`
	Distance          string `yaml:"distance"`
	Standardization   string `yaml:"standardization"`
}

type NearestNeighborConfig struct {
	Distance string `yaml:"distance"`
	Report   string `yaml:"report"`
}

type DBSCANConfig struct {
	Output      string `yaml:"output"`
	Method      string `yaml:"method"`
	MinFeatures int    `yaml:"min_features"`
}

type CubeConfig struct {
	Output   string `yaml:"output"`
	TimeStep string `yaml:"time_step"`
	Distance string `yaml:"distance"`
	Shape    string `yaml:"shape"`
}

type ClusteringConfig struct {
	Variable       string `yaml:"variable"`
	Output         string `yaml:"output"`
	Characteristic string `yaml:"characteristic"`
	Ignore         string `yaml:"ignore"`
	Popups         string `yaml:"popups"`
}

type AnalysisConfig struct {
	XField string `yaml:"x_field"`
	YField string `yaml:"y_field"`

	NeighborsWhere  string `yaml:"neighbors_where"`
	NeighborsOutput string `yaml:"neighbors_output"`

	EventsInit string `yaml:"events_init"`
	EventsCSV  string `yaml:"events_csv"`
	Events     string `yaml:"events"`

	HeadquartersWhere string `yaml:"headquarters_where"`
	Headquarters      string `yaml:"headquarters"`

	Tessellation      TessellationConfig `yaml:"tessellation"`
	Relationship      string             `yaml:"relationship"`
	HeadquarterCounts string             `yaml:"headquarter_counts"`

	Autocorrelation AutocorrelationConfig `yaml:"autocorrelation"`
	NearestNeighbor NearestNeighborConfig `yaml:"nearest_neighbor"`
	DBSCAN          DBSCANConfig          `yaml:"dbscan"`

	ActivitiesWhere     string `yaml:"activities_where"`
	Activities          string `yaml:"activities"`
	ProjectedActivities string `yaml:"projected_activities"`
	ProjectionWKID      int    `yaml:"projection_wkid"`

	DateField          string `yaml:"date_field"`
	DateFormat         string `yaml:"date_format"`
	ConvertedDateField string `yaml:"converted_date_field"`

	Cube       CubeConfig       `yaml:"cube"`
	Clustering ClusteringConfig `yaml:"clustering"`
}

type NATSConfig struct {
	URL           string        `yaml:"url"`
	Subject       string        `yaml:"subject"` // step events
	MaxReconnect  int           `yaml:"max_reconnect"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node-exporter textfile collector path
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func strPtr(s string) *string { return &s }

// Default returns the configuration of the Sierra Leone RUF analysis
func Default() *Config {
	return &Config{
		Workspace: "Working",
		Inputs: InputsConfig{
			Territories:  "Longitude_Graticules_and_World_Countries_Boundaries.shp",
			AdminRegions: "sle_admbnda_adm2_1m_gov_ocha_20161017.shp",
			Events:       "sll-ledsierre-leonelocalsource1991-2001.csv",
		},
		Source: SourceConfig{
			Driver: "mysql",
			Key:    "id",
		},
		Engine: EngineConfig{
			Type:    "command",
			Command: "arcpy-bridge",
			Subject: "geoprocessing.tools",
			Timeout: 30 * time.Minute,
		},
		Clean: CleanConfig{
			Target: "Events_init.dbf",
			Rules: []models.FieldEditRule{
				{Field: "country", Value: strPtr("Nigeria"), Action: "Delete"},
				{Field: "longitude", Action: "switch_sign"},
			},
		},
		Analysis: AnalysisConfig{
			XField:            "LONGITUDE",
			YField:            "LATITUDE",
			NeighborsWhere:    "CNTRY_NAME IN ('Guinea', 'Liberia')",
			NeighborsOutput:   "Guinea-Liberia.shp",
			EventsInit:        "Events_init.shp",
			EventsCSV:         "Events.csv",
			Events:            "Events.shp",
			HeadquartersWhere: "ACTOR1 LIKE '%RUF: Revolutionary United Front%' And EVENT_TYPE IN ('Headquarters or base established')",
			Headquarters:      "RUF_headquarters.shp",
			Tessellation: TessellationConfig{
				Output: "SLtessellation.shp",
				Shape:  "HEXAGON",
				Size:   "36 SquareMiles",
			},
			Relationship:      "INTERSECT",
			HeadquarterCounts: "Headquarter_counts.shp",
			Autocorrelation: AutocorrelationConfig{
				Field:             "Join_Count",
				Report:            "GENERATE_REPORT",
				Conceptualization: "INVERSE_DISTANCE",
				Distance:          "EUCLIDEAN_DISTANCE",
				Standardization:   "ROW",
			},
			NearestNeighbor: NearestNeighborConfig{
				Distance: "EUCLIDEAN_DISTANCE",
				Report:   "GENERATE_REPORT",
			},
			DBSCAN: DBSCANConfig{
				Output:      "RUF_headquarters_DBSCAN.shp",
				Method:      "DBSCAN",
				MinFeatures: 10,
			},
			ActivitiesWhere:     "ACTOR1 LIKE '%RUF: Revolutionary United%'",
			Activities:          "RUF_activities.shp",
			ProjectedActivities: "RUF_activities_Project.shp",
			ProjectionWKID:      102011, // Africa_Sinusoidal
			DateField:           "EVENT_DATE",
			DateFormat:          "dd/MM/yyyy",
			ConvertedDateField:  "CONV_DATE",
			Cube: CubeConfig{
				Output:   "RUF_activities.nc",
				TimeStep: "1 Months",
				Distance: "8 Kilometers",
				Shape:    "HEXAGON_GRID",
			},
			Clustering: ClusteringConfig{
				Variable:       "COUNT",
				Output:         "RUF_activities_TSCluster.shp",
				Characteristic: "PROFILE_FOURIER",
				Ignore:         "RANGE",
				Popups:         "CREATE_POPUP",
			},
		},
		Cleanup: []string{
			"Events_init.shp",
			"Events.shp",
			"Headquarter_counts.shp",
			"RUF_activities",
			"RUF_activities_Project",
			"RUF_headquarters.shp",
			"SLtessellation.shp",
		},
		NATS: NATSConfig{
			Subject:       "conflict.pipeline.steps",
			MaxReconnect:  10,
			ReconnectWait: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads path over the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// Validate checks combinations the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Engine.Type {
	case "command":
		if c.Engine.Command == "" {
			return fmt.Errorf("engine.command is required for the command engine")
		}
	case "nats":
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for the nats engine")
		}
		if c.Engine.Subject == "" {
			return fmt.Errorf("engine.subject is required for the nats engine")
		}
	case "dryrun":
	default:
		return fmt.Errorf("unknown engine type %q", c.Engine.Type)
	}

	if c.Source.Enabled() {
		switch c.Source.Driver {
		case "mysql", "sqlite":
		default:
			return fmt.Errorf("unsupported source driver %q", c.Source.Driver)
		}
		if c.Source.Query == "" {
			return fmt.Errorf("source.query is required when source.dsn is set")
		}
	}

	if c.Clean.Target == "source" {
		if !c.Source.Enabled() || c.Source.Table == "" || c.Source.Key == "" {
			return fmt.Errorf("clean.target 'source' needs source.dsn, source.table and source.key")
		}
	}
	return nil
}
