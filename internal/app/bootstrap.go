package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"todoperf/internal/config"
	"todoperf/internal/instance"
	"todoperf/internal/measure"
	"todoperf/internal/payload"
	"todoperf/internal/relations"
	"todoperf/internal/results"
	"todoperf/internal/sweep"
	"todoperf/internal/todoapi"
	"todoperf/pkg/logging"
)

// Application is a configured benchmark run.
type Application struct {
	config  *Config
	harness config.HarnessConfig
	client  *todoapi.Client
	manager *instance.Manager

	// sleep replaces the sweeper settle pauses in tests.
	sleep sweep.Sleeper
}

// NewApplication sets up logging, loads the harness configuration and applies
// command line overrides.
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}

	logOutput := cfg.Log
	if cfg.Quiet {
		logOutput = io.Discard
	}
	logging.InitForCLI(flagLevel(cfg, logging.LevelInfo), logOutput)

	var harness config.HarnessConfig
	if cfg.Harness != nil {
		harness = *cfg.Harness
	} else {
		loaded, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		harness = loaded
	}

	if harness.LogLevel != "" {
		configured, err := logging.ParseLevel(harness.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level: %w", err)
		}
		logging.InitForCLI(flagLevel(cfg, configured), logOutput)
	}

	if cfg.ResultsDir != "" {
		harness.ResultsDir = cfg.ResultsDir
	}
	if cfg.BaseURL != "" {
		harness.BaseURL = cfg.BaseURL
	}
	if cfg.Attach {
		harness.Server.Command = nil
	}
	if err := harness.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Selection.Empty() {
		cfg.Selection = All()
	}
	for _, kind := range cfg.Selection.Kinds {
		if _, err := harness.Entity(kind); err != nil {
			return nil, err
		}
	}

	client := todoapi.NewClient(harness.BaseURL, harness.RequestTimeout)
	return &Application{
		config:  cfg,
		harness: harness,
		client:  client,
		manager: instance.NewManager(harness.Server, client),
	}, nil
}

// flagLevel lets --debug and --verbose raise the configured level.
func flagLevel(cfg *Config, configured logging.LogLevel) logging.LogLevel {
	switch {
	case cfg.Debug:
		return logging.LevelDebug
	case cfg.Verbose && configured > logging.LevelInfo:
		return logging.LevelInfo
	default:
		return configured
	}
}

// Harness returns the effective configuration.
func (a *Application) Harness() config.HarnessConfig {
	return a.harness
}

// Run executes the selected benchmarks. A *instance.StartupError is returned
// when the server never became ready; otherwise the first sweep failure is
// returned after every result has been exported.
func (a *Application) Run(ctx context.Context) (err error) {
	manifest := results.NewManifest(a.config.Version, a.harness.BaseURL, time.Now())
	defer func() {
		manifest.FinishedAt = time.Now()
		if err != nil {
			manifest.Error = err.Error()
		}
		if path, werr := manifest.Write(a.harness.ResultsDir); werr != nil {
			logging.Error("Bootstrap", werr, "Failed to write run manifest")
			if err == nil {
				err = werr
			}
		} else {
			logging.Info("Bootstrap", "Run %s manifest written to %s", manifest.RunID, path)
		}
	}()

	instance.CleanupStale(a.harness.Server.Command)
	defer a.manager.KillAll()

	inst, err := a.manager.Start(ctx)
	if err != nil {
		var startupErr *instance.StartupError
		if errors.As(err, &startupErr) && startupErr.Logs.Combined() != "" {
			logging.Debug("Bootstrap", "Server output:\n%s", startupErr.Logs.Combined())
		}
		return err
	}
	defer func() {
		if ctx.Err() != nil {
			logging.Warn("Bootstrap", "Run cancelled, killing spawned servers")
			a.manager.KillAll()
			return
		}
		a.manager.Stop(ctx, inst)
	}()

	sampler := measure.NewSampler(a.probe(inst), a.harness.Sampler.PrimeDelay)

	var errs []error
	for _, kind := range a.config.Selection.Kinds {
		if err := a.runKind(ctx, kind, sampler, manifest); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil || inst.Exited() {
				return errors.Join(errs...)
			}
		}
	}

	if a.config.Selection.Relationships {
		if err := a.runRelationships(ctx, sampler, manifest); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Application) runKind(ctx context.Context, kind string, sampler *measure.Sampler, manifest *results.Manifest) error {
	entityCfg, err := a.harness.Entity(kind)
	if err != nil {
		return err
	}
	gen, err := payload.NewGenerator(entityCfg)
	if err != nil {
		return fmt.Errorf("%s payload templates: %w", kind, err)
	}

	sweeper := sweep.New(a.client.Entity(kind, entityCfg), gen, sampler, entityCfg.Sizes, a.harness.Sweep, sweep.Options{
		Quiet:    a.config.Quiet,
		Progress: a.config.Log,
		Sleep:    a.sleep,
	})

	rec := results.NewRecorder()
	runErr := sweeper.Run(ctx, rec)
	if runErr != nil {
		logging.Error("Bootstrap", runErr, "Sweep of %s failed, exporting %d samples gathered so far", kind, rec.Len())
	}

	path, err := rec.Export(a.harness.ResultsDir, kind)
	if err != nil {
		return errors.Join(runErr, err)
	}
	manifest.AddFile(kind, path)

	if !a.config.Quiet {
		results.WriteSummary(a.config.Out, kind, rec.Series())
	}
	return runErr
}

func (a *Application) runRelationships(ctx context.Context, sampler *measure.Sampler, manifest *results.Manifest) error {
	bench, err := relations.New(a.client, a.harness.Entities, sampler, a.harness.Sweep.Relations)
	if err != nil {
		return err
	}

	records, runErr := bench.Run(ctx)
	if runErr != nil {
		logging.Error("Bootstrap", runErr, "Relationship benchmark failed")
		if records == nil {
			return runErr
		}
	}

	path, err := relations.Export(a.harness.ResultsDir, records)
	if err != nil {
		return errors.Join(runErr, err)
	}
	manifest.AddFile("relationships", path)
	return runErr
}

// probe picks the process whose usage is sampled. Attached runs and
// platforms without procfs fall back to the harness or to latency only.
func (a *Application) probe(inst *instance.Instance) measure.Probe {
	pid := 0
	if a.harness.Sampler.Target == config.TargetServer {
		if inst.Attached() {
			logging.Warn("Bootstrap", "Sampler target is server but the server is attached, sampling the harness instead")
		} else {
			pid = inst.PID
		}
	}

	probe, err := measure.NewProcessProbe(pid)
	if err != nil {
		logging.Warn("Bootstrap", "CPU and memory sampling disabled: %v", err)
		return measure.NopProbe{}
	}
	return probe
}
