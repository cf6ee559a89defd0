package actions

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/relloyd/visitload/components"
	"github.com/relloyd/visitload/config"
	c "github.com/relloyd/visitload/constants"
	"github.com/relloyd/visitload/file"
	"github.com/relloyd/visitload/helper"
	"github.com/relloyd/visitload/logger"
	"github.com/relloyd/visitload/rdbms"
	"github.com/relloyd/visitload/rdbms/shared"
	"github.com/relloyd/visitload/stats"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

type LoadVisitsConfig struct {
	InputPath        string            `errorTxt:"input file" mandatory:"yes"`
	EnvFile          string            // optional dotenv file with database settings.
	S3Region         string            // region for s3:// input.
	Table            rdbms.SchemaTable `errorTxt:"[schema.]table" mandatory:"yes"`
	BatchSize        int               `errorTxt:"batch size" mandatory:"yes"`
	MaxAttempts      int               `errorTxt:"max attempts" mandatory:"yes"`
	RetryDelay       time.Duration
	LogLevel         string
	StackDumpOnPanic bool
	DryRun           bool
	OutputFormat     string // yaml or json, used by DryRun.
	// Connection overrides the database settings read from the environment when set.
	Connection *shared.ConnectionDetails
	// Hooks for tests.
	OpenConnectionFn shared.OpenConnectionFunc
	SleepFn          func(d time.Duration)
	S3Opener         file.S3OpenerFunc
}

// loadVisitsPlan is printed by a dry run.
type loadVisitsPlan struct {
	Input       string                   `json:"input"`
	Table       string                   `json:"table"`
	BatchSize   int                      `json:"batchSize"`
	MaxAttempts int                      `json:"maxAttempts"`
	RetryDelay  string                   `json:"retryDelay"`
	Connection  shared.ConnectionDetails `json:"connection"` // the DSN is redacted when marshalled.
}

// NewLoadVisitsConfig returns a config populated with defaults.
func NewLoadVisitsConfig() *LoadVisitsConfig {
	return &LoadVisitsConfig{
		InputPath:    c.DefaultInputPath,
		EnvFile:      c.DefaultEnvFile,
		Table:        rdbms.NewSchemaTable("", c.DefaultTableName),
		BatchSize:    c.DefaultBatchSize,
		MaxAttempts:  c.DefaultMaxLoadAttempts,
		RetryDelay:   c.DefaultRetryDelaySeconds * time.Second,
		LogLevel:     c.DefaultLogLevel,
		OutputFormat: "yaml",
	}
}

func validateLoadVisitsConfig(cfg *LoadVisitsConfig) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	if cfg.BatchSize < 1 {
		return errors.Errorf("batch size must be at least 1; got %d", cfg.BatchSize)
	}
	if cfg.MaxAttempts < 1 {
		return errors.Errorf("max attempts must be at least 1; got %d", cfg.MaxAttempts)
	}
	if cfg.RetryDelay < 0 {
		return errors.Errorf("retry delay must not be negative; got %v", cfg.RetryDelay)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = c.DefaultLogLevel
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// resolveConnection returns the configured connection or reads it from the environment.
func resolveConnection(log logger.Logger, conn *shared.ConnectionDetails, envFile string) (shared.ConnectionDetails, error) {
	if conn != nil {
		return *conn, nil
	}
	dbCfg, err := config.LoadDatabaseConfig(log, envFile)
	if err != nil {
		return shared.ConnectionDetails{}, err
	}
	return dbCfg.ConnectionDetails()
}

// RunLoadVisits loads the visit URLs named by cfg.InputPath into the target table and then logs the
// table's row count. With DryRun set it writes the resolved plan to out instead.
func RunLoadVisits(ctx context.Context, cfg *LoadVisitsConfig, out io.Writer) error {
	if err := validateLoadVisitsConfig(cfg); err != nil {
		return err
	}
	runId := xid.New().String()
	log := logger.NewLogger(c.ServiceName, cfg.LogLevel, cfg.StackDumpOnPanic).WithField("runId", runId)
	conn, err := resolveConnection(log, cfg.Connection, cfg.EnvFile)
	if err != nil {
		return err
	}
	if cfg.DryRun {
		return writePlan(cfg, conn, out)
	}
	log.Info("Starting load of ", cfg.InputPath, " into ", cfg.Table, " at ", time.Now().Format(c.TimeFormatYearSeconds))
	openFn := cfg.OpenConnectionFn
	if openFn == nil {
		openFn = rdbms.OpenDbConnection
	}
	runStats := stats.NewRunStats()
	defer runStats.Log(log, runId)
	// Open the input.
	rc, err := file.OpenInput(ctx, &file.InputConfig{Log: log, Path: cfg.InputPath, S3Region: cfg.S3Region, S3Opener: cfg.S3Opener})
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()
	src, err := file.NewCSVUrlReader(log, rc, c.InputUrlColumnName)
	if err != nil {
		return err
	}
	// Set up the loader.
	loader, err := components.NewTableReplaceLoader(&components.TableReplaceLoaderConfig{
		Log:               log,
		Name:              "load " + cfg.Table.String(),
		ConnectionDetails: conn,
		OpenConnectionFn:  openFn,
		SqlStatementGeneratorConfig: shared.SqlStatementGeneratorConfig{
			Log:          log,
			OutputSchema: cfg.Table.GetSchema(),
			OutputTable:  cfg.Table.GetTable(),
		},
		MaxAttempts:   cfg.MaxAttempts,
		RetryDelay:    cfg.RetryDelay,
		IsTransientFn: rdbms.IsTransientError,
		SleepFn:       cfg.SleepFn,
		Stats:         runStats,
	})
	if err != nil {
		return err
	}
	_, err = RunPipeline(ctx, &PipelineConfig{
		Log:       log,
		Source:    src,
		Loader:    loader,
		BatchSize: cfg.BatchSize,
		Stats:     runStats,
	})
	log.Info("Read ", src.RowCount(), " rows from ", cfg.InputPath)
	if err != nil {
		return err
	}
	LogTableRowCount(ctx, log, openFn, conn, cfg.Table)
	return nil
}

func writePlan(cfg *LoadVisitsConfig, conn shared.ConnectionDetails, out io.Writer) error {
	p := loadVisitsPlan{
		Input:       cfg.InputPath,
		Table:       cfg.Table.String(),
		BatchSize:   cfg.BatchSize,
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay.String(),
		Connection:  conn,
	}
	var data []byte
	var err error
	switch cfg.OutputFormat {
	case "yaml", "":
		data, err = yaml.Marshal(p)
	case "json":
		data, err = json.MarshalIndent(p, "", "  ")
		data = append(data, '\n')
	default:
		return errors.Errorf("unsupported output format %q", cfg.OutputFormat)
	}
	if err != nil {
		return errors.Wrap(err, "unable to marshal the load plan")
	}
	_, err = out.Write(data)
	return err
}
