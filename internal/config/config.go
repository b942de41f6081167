// Package config provides the Config struct and loader for .triage.yaml
// configuration files. A Config is built once at startup and then passed by
// value into every component constructor; nothing mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/piyushigoyal/claimtriage/internal/utils"
	"github.com/piyushigoyal/claimtriage/internal/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file discovered by Load.
const FileName = ".triage.yaml"

// Default values. New() references them and no other code should duplicate them.
const (
	DefaultHighRiskThreshold   = 0.7
	DefaultMediumRiskThreshold = 0.4

	DefaultHighAmount        = 50000.0
	DefaultPriorClaimsCutoff = 3
	DefaultNewPolicyYears    = 1.0
	DefaultLateReportDays    = 30
	DefaultCoverageRatio     = 0.8
	DefaultYoungAge          = 25
	DefaultOldAge            = 75

	DefaultLowBand    = 5000.0
	DefaultMediumBand = 25000.0
	DefaultHighBand   = 75000.0

	DefaultApproveRiskCeiling  = 0.3
	DefaultApprovePriorCeiling = 2
	DefaultInvestigatePriors   = 3

	DefaultEngine            = "mock"
	DefaultModel             = "gpt-4o-mini"
	DefaultTemperature       = 0.1
	DefaultTimeout           = 60
	DefaultRequestsPerSecond = 2.0
	DefaultBurst             = 1

	DefaultMaxIterations = 5
	DefaultWorkers       = 4
	DefaultBootstrapSeed = 42

	DefaultCacheDir = ".triage-cache"
	DefaultAuditLog = "logs/claims_audit.jsonl"
)

// DefaultHighRiskLocations are the locations that add the location weight.
var DefaultHighRiskLocations = []string{"New York, NY", "Los Angeles, CA", "Chicago, IL"}

// RiskWeights are the additive contributions of each risk rule.
type RiskWeights struct {
	HighAmount   float64 `yaml:"high_amount,omitempty"`
	PriorClaims  float64 `yaml:"prior_claims,omitempty"`
	NewPolicy    float64 `yaml:"new_policy,omitempty"`
	LateReport   float64 `yaml:"late_report,omitempty"`
	NearCoverage float64 `yaml:"near_coverage,omitempty"`
	Age          float64 `yaml:"age,omitempty"`
	Location     float64 `yaml:"location,omitempty"`
}

// Risk configures the risk scorer.
type Risk struct {
	HighThreshold     float64     `yaml:"high_threshold,omitempty"`
	MediumThreshold   float64     `yaml:"medium_threshold,omitempty"`
	HighAmount        float64     `yaml:"high_amount,omitempty"`
	PriorClaimsCutoff int         `yaml:"prior_claims_cutoff,omitempty"`
	NewPolicyYears    float64     `yaml:"new_policy_years,omitempty"`
	LateReportDays    int         `yaml:"late_report_days,omitempty"`
	CoverageRatio     float64     `yaml:"coverage_ratio,omitempty"`
	YoungAge          int         `yaml:"young_age,omitempty"`
	OldAge            int         `yaml:"old_age,omitempty"`
	Weights           RiskWeights `yaml:"weights,omitempty"`
	HighRiskLocations []string    `yaml:"high_risk_locations,omitempty"`
}

// Triage configures severity bands and the action rule chain.
type Triage struct {
	LowBand             float64 `yaml:"low_band,omitempty"`
	MediumBand          float64 `yaml:"medium_band,omitempty"`
	HighBand            float64 `yaml:"high_band,omitempty"`
	ApproveRiskCeiling  float64 `yaml:"approve_risk_ceiling,omitempty"`
	ApprovePriorCeiling int     `yaml:"approve_prior_ceiling,omitempty"`
	EscalateRisk        float64 `yaml:"escalate_risk,omitempty"`
	InvestigateRisk     float64 `yaml:"investigate_risk,omitempty"`
	InvestigatePriors   int     `yaml:"investigate_priors,omitempty"`
}

// Labels configures the vocabulary scanned when extracting labels from
// model output. Order matters: the first label found wins.
type Labels struct {
	Severities      []string `yaml:"severities,omitempty"`
	Actions         []string `yaml:"actions,omitempty"`
	DefaultSeverity string   `yaml:"default_severity,omitempty"`
	DefaultAction   string   `yaml:"default_action,omitempty"`
}

// Engine configures the inference backend.
type Engine struct {
	Type              string   `yaml:"type,omitempty"`
	Model             string   `yaml:"model,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	Timeout           int      `yaml:"timeout,omitempty"`
	RequestsPerSecond float64  `yaml:"requests_per_second,omitempty"`
	Burst             int      `yaml:"burst,omitempty"`
}

// Agent configures the tool-using strategy.
type Agent struct {
	MaxIterations int `yaml:"max_iterations,omitempty"`
}

// CompositeWeights combine per-dimension scores into one number.
type CompositeWeights struct {
	SeverityAccuracy float64 `yaml:"severity_accuracy,omitempty"`
	ActionAccuracy   float64 `yaml:"action_accuracy,omitempty"`
	SeverityF1       float64 `yaml:"severity_f1,omitempty"`
	ActionF1         float64 `yaml:"action_f1,omitempty"`
}

// Harness configures the evaluation harness.
type Harness struct {
	Parallel      *bool            `yaml:"parallel,omitempty"`
	Workers       int              `yaml:"workers,omitempty"`
	Composite     CompositeWeights `yaml:"composite,omitempty"`
	BootstrapSeed int64            `yaml:"bootstrap_seed,omitempty"`
}

// Audit configures where the decision log is flushed.
type Audit struct {
	Path           string `yaml:"path,omitempty"`
	SQLiteDSN      string `yaml:"sqlite_dsn,omitempty"`
	BlobAccountURL string `yaml:"blob_account_url,omitempty"`
	BlobContainer  string `yaml:"blob_container,omitempty"`
}

// Cache holds inference cache settings.
type Cache struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// Config is the top-level configuration loaded from .triage.yaml.
type Config struct {
	Risk    Risk    `yaml:"risk,omitempty"`
	Triage  Triage  `yaml:"triage,omitempty"`
	Labels  Labels  `yaml:"labels,omitempty"`
	Engine  Engine  `yaml:"engine,omitempty"`
	Agent   Agent   `yaml:"agent,omitempty"`
	Harness Harness `yaml:"harness,omitempty"`
	Audit   Audit   `yaml:"audit,omitempty"`
	Cache   Cache   `yaml:"cache,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() Config {
	return Config{
		Risk: Risk{
			HighThreshold:     DefaultHighRiskThreshold,
			MediumThreshold:   DefaultMediumRiskThreshold,
			HighAmount:        DefaultHighAmount,
			PriorClaimsCutoff: DefaultPriorClaimsCutoff,
			NewPolicyYears:    DefaultNewPolicyYears,
			LateReportDays:    DefaultLateReportDays,
			CoverageRatio:     DefaultCoverageRatio,
			YoungAge:          DefaultYoungAge,
			OldAge:            DefaultOldAge,
			Weights: RiskWeights{
				HighAmount:   0.30,
				PriorClaims:  0.25,
				NewPolicy:    0.15,
				LateReport:   0.15,
				NearCoverage: 0.20,
				Age:          0.10,
				Location:     0.05,
			},
			HighRiskLocations: append([]string(nil), DefaultHighRiskLocations...),
		},
		Triage: Triage{
			LowBand:             DefaultLowBand,
			MediumBand:          DefaultMediumBand,
			HighBand:            DefaultHighBand,
			ApproveRiskCeiling:  DefaultApproveRiskCeiling,
			ApprovePriorCeiling: DefaultApprovePriorCeiling,
			EscalateRisk:        DefaultHighRiskThreshold,
			InvestigateRisk:     DefaultMediumRiskThreshold,
			InvestigatePriors:   DefaultInvestigatePriors,
		},
		Labels: Labels{
			Severities:      []string{"low", "medium", "high", "critical"},
			Actions:         []string{"approve", "investigate", "deny", "escalate"},
			DefaultSeverity: "medium",
			DefaultAction:   "investigate",
		},
		Engine: Engine{
			Type:              DefaultEngine,
			Model:             DefaultModel,
			Temperature:       float64Ptr(DefaultTemperature),
			Timeout:           DefaultTimeout,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Agent: Agent{
			MaxIterations: DefaultMaxIterations,
		},
		Harness: Harness{
			Parallel: boolPtr(false),
			Workers:  DefaultWorkers,
			Composite: CompositeWeights{
				SeverityAccuracy: 0.4,
				ActionAccuracy:   0.4,
				SeverityF1:       0.1,
				ActionF1:         0.1,
			},
			BootstrapSeed: DefaultBootstrapSeed,
		},
		Audit: Audit{
			Path: DefaultAuditLog,
		},
		Cache: Cache{
			Enabled: boolPtr(false),
			Dir:     DefaultCacheDir,
		},
	}
}

// Load finds .triage.yaml by walking up from startDir (max 10 levels),
// unmarshals it, fills in missing fields with defaults and applies
// environment overrides. A .env file next to the config (or in startDir)
// is loaded first; variables already set in the environment win.
// If no config file is found, returns defaults with a nil error.
func Load(startDir string) (Config, error) {
	cfg := New()

	data, dir, err := findConfigFile(startDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		dir = startDir
	case err != nil:
		return Config{}, fmt.Errorf("loading %s: %w", FileName, err)
	default:
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", FileName, err)
		}
		if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
			return Config{}, fmt.Errorf("%s does not match schema:\n  %s", filepath.Join(dir, FileName), strings.Join(errs, "\n  "))
		}
		mergeConfig(&cfg, &fileCfg)
		resolveFilePaths(&cfg, dir)
	}

	if err := loadDotEnv(dir); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	var errs []error
	if c.Risk.MediumThreshold >= c.Risk.HighThreshold {
		errs = append(errs, fmt.Errorf("risk.medium_threshold (%.2f) must be below risk.high_threshold (%.2f)", c.Risk.MediumThreshold, c.Risk.HighThreshold))
	}
	if c.Triage.LowBand >= c.Triage.MediumBand || c.Triage.MediumBand >= c.Triage.HighBand {
		errs = append(errs, fmt.Errorf("triage bands must be strictly increasing, got %.0f/%.0f/%.0f", c.Triage.LowBand, c.Triage.MediumBand, c.Triage.HighBand))
	}
	w := c.Risk.Weights
	for name, v := range map[string]float64{
		"high_amount": w.HighAmount, "prior_claims": w.PriorClaims, "new_policy": w.NewPolicy,
		"late_report": w.LateReport, "near_coverage": w.NearCoverage, "age": w.Age, "location": w.Location,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("risk.weights.%s must be in [0, 1], got %.2f", name, v))
		}
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be >= 1"))
	}
	if c.Harness.Workers < 1 {
		errs = append(errs, fmt.Errorf("harness.workers must be >= 1"))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive"))
	}
	return errors.Join(errs...)
}

// resolveFilePaths makes the audit log and cache directory relative to the
// directory holding .triage.yaml rather than the working directory.
func resolveFilePaths(cfg *Config, dir string) {
	cfg.Audit.Path = utils.ResolvePath(dir, cfg.Audit.Path)
	cfg.Cache.Dir = utils.ResolvePath(dir, cfg.Cache.Dir)
}

// findConfigFile walks up from dir looking for .triage.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) ([]byte, string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, "", os.ErrNotExist
}

func loadDotEnv(dir string) error {
	p := filepath.Join(dir, ".env")
	if _, err := os.Stat(p); err != nil {
		return nil
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("loading %s: %w", p, err)
	}
	return nil
}

// applyEnv overlays LLM_MODEL, LLM_TEMPERATURE and TRIAGE_ENGINE.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Engine.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing LLM_TEMPERATURE %q: %w", v, err)
		}
		cfg.Engine.Temperature = &t
	}
	if v := os.Getenv("TRIAGE_ENGINE"); v != "" {
		cfg.Engine.Type = v
	}
	return nil
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	// Risk
	mergeFloat(&dst.Risk.HighThreshold, src.Risk.HighThreshold)
	mergeFloat(&dst.Risk.MediumThreshold, src.Risk.MediumThreshold)
	mergeFloat(&dst.Risk.HighAmount, src.Risk.HighAmount)
	mergeInt(&dst.Risk.PriorClaimsCutoff, src.Risk.PriorClaimsCutoff)
	mergeFloat(&dst.Risk.NewPolicyYears, src.Risk.NewPolicyYears)
	mergeInt(&dst.Risk.LateReportDays, src.Risk.LateReportDays)
	mergeFloat(&dst.Risk.CoverageRatio, src.Risk.CoverageRatio)
	mergeInt(&dst.Risk.YoungAge, src.Risk.YoungAge)
	mergeInt(&dst.Risk.OldAge, src.Risk.OldAge)
	mergeFloat(&dst.Risk.Weights.HighAmount, src.Risk.Weights.HighAmount)
	mergeFloat(&dst.Risk.Weights.PriorClaims, src.Risk.Weights.PriorClaims)
	mergeFloat(&dst.Risk.Weights.NewPolicy, src.Risk.Weights.NewPolicy)
	mergeFloat(&dst.Risk.Weights.LateReport, src.Risk.Weights.LateReport)
	mergeFloat(&dst.Risk.Weights.NearCoverage, src.Risk.Weights.NearCoverage)
	mergeFloat(&dst.Risk.Weights.Age, src.Risk.Weights.Age)
	mergeFloat(&dst.Risk.Weights.Location, src.Risk.Weights.Location)
	if len(src.Risk.HighRiskLocations) > 0 {
		dst.Risk.HighRiskLocations = src.Risk.HighRiskLocations
	}

	// Triage
	mergeFloat(&dst.Triage.LowBand, src.Triage.LowBand)
	mergeFloat(&dst.Triage.MediumBand, src.Triage.MediumBand)
	mergeFloat(&dst.Triage.HighBand, src.Triage.HighBand)
	mergeFloat(&dst.Triage.ApproveRiskCeiling, src.Triage.ApproveRiskCeiling)
	mergeInt(&dst.Triage.ApprovePriorCeiling, src.Triage.ApprovePriorCeiling)
	mergeFloat(&dst.Triage.EscalateRisk, src.Triage.EscalateRisk)
	mergeFloat(&dst.Triage.InvestigateRisk, src.Triage.InvestigateRisk)
	mergeInt(&dst.Triage.InvestigatePriors, src.Triage.InvestigatePriors)

	// Labels
	if len(src.Labels.Severities) > 0 {
		dst.Labels.Severities = src.Labels.Severities
	}
	if len(src.Labels.Actions) > 0 {
		dst.Labels.Actions = src.Labels.Actions
	}
	if src.Labels.DefaultSeverity != "" {
		dst.Labels.DefaultSeverity = src.Labels.DefaultSeverity
	}
	if src.Labels.DefaultAction != "" {
		dst.Labels.DefaultAction = src.Labels.DefaultAction
	}

	// Engine
	if src.Engine.Type != "" {
		dst.Engine.Type = src.Engine.Type
	}
	if src.Engine.Model != "" {
		dst.Engine.Model = src.Engine.Model
	}
	if src.Engine.Temperature != nil {
		dst.Engine.Temperature = src.Engine.Temperature
	}
	mergeInt(&dst.Engine.Timeout, src.Engine.Timeout)
	mergeFloat(&dst.Engine.RequestsPerSecond, src.Engine.RequestsPerSecond)
	mergeInt(&dst.Engine.Burst, src.Engine.Burst)

	// Agent
	mergeInt(&dst.Agent.MaxIterations, src.Agent.MaxIterations)

	// Harness
	if src.Harness.Parallel != nil {
		dst.Harness.Parallel = src.Harness.Parallel
	}
	mergeInt(&dst.Harness.Workers, src.Harness.Workers)
	if src.Harness.Composite != (CompositeWeights{}) {
		dst.Harness.Composite = src.Harness.Composite
	}
	if src.Harness.BootstrapSeed != 0 {
		dst.Harness.BootstrapSeed = src.Harness.BootstrapSeed
	}

	// Audit
	if src.Audit.Path != "" {
		dst.Audit.Path = src.Audit.Path
	}
	if src.Audit.SQLiteDSN != "" {
		dst.Audit.SQLiteDSN = src.Audit.SQLiteDSN
	}
	if src.Audit.BlobAccountURL != "" {
		dst.Audit.BlobAccountURL = src.Audit.BlobAccountURL
	}
	if src.Audit.BlobContainer != "" {
		dst.Audit.BlobContainer = src.Audit.BlobContainer
	}

	// Cache
	if src.Cache.Enabled != nil {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func float64Ptr(f float64) *float64 {
	return &f
}
