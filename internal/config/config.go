package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Memory bank backends.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type Config struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"log_level"`
	TraceExporter string `yaml:"trace_exporter"`

	Session  SessionConfig  `yaml:"session"`
	Memory   MemoryConfig   `yaml:"memory"`
	LLM      LLMConfig      `yaml:"llm"`
	Workflow WorkflowConfig `yaml:"workflow"`
}

type SessionConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// MemoryConfig selects where the preference/history snapshot lives.
type MemoryConfig struct {
	Backend    string `yaml:"backend"` // memory, file, sqlite or firestore
	Dir        string `yaml:"dir"`
	SQLitePath string `yaml:"sqlite_path"`
	Collection string `yaml:"collection"`
}

type LLMConfig struct {
	UseMock      bool   `yaml:"use_mock"` // true = never call Vertex
	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	ModelName    string `yaml:"model_name"`
}

type WorkflowConfig struct {
	PlannerTimeout    time.Duration `yaml:"planner_timeout"`
	RecipeTimeout     time.Duration `yaml:"recipe_timeout"`
	RecipeConcurrency int           `yaml:"recipe_concurrency"`
	ListTimeout       time.Duration `yaml:"list_timeout"`
	NutritionTimeout  time.Duration `yaml:"nutrition_timeout"`
	// RecipeLatency slows the local recipe catalog down, for exercising timeouts.
	RecipeLatency time.Duration `yaml:"recipe_latency"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:          "8080",
		LogLevel:      "info",
		TraceExporter: "none",
		Session: SessionConfig{
			Timeout:       60 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Memory: MemoryConfig{
			Backend:    BackendFile,
			Dir:        "data",
			SQLitePath: "data/memory.db",
			Collection: "memory_snapshots",
		},
		LLM: LLMConfig{
			UseMock:     true,
			GCPLocation: "us-central1",
			ModelName:   "gemini-2.5-flash",
		},
		Workflow: WorkflowConfig{
			PlannerTimeout:    5 * time.Second,
			RecipeTimeout:     5 * time.Second,
			RecipeConcurrency: 5,
			ListTimeout:       5 * time.Second,
			NutritionTimeout:  5 * time.Second,
		},
	}
}

// Load builds the config from defaults, then the YAML file at path (if
// any), then MEALPREP_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MEALPREP_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var result *multierror.Error
	dur := func(key string, dst *time.Duration) {
		if err := getDurationEnv(key, dst); err != nil {
			result = multierror.Append(result, err)
		}
	}

	c.Port = getEnv("MEALPREP_PORT", getEnv("PORT", c.Port))
	c.LogLevel = getEnv("MEALPREP_LOG_LEVEL", c.LogLevel)
	c.TraceExporter = getEnv("MEALPREP_TRACE_EXPORTER", c.TraceExporter)

	dur("MEALPREP_SESSION_TIMEOUT", &c.Session.Timeout)
	dur("MEALPREP_SWEEP_INTERVAL", &c.Session.SweepInterval)

	c.Memory.Backend = getEnv("MEALPREP_MEMORY_BACKEND", c.Memory.Backend)
	c.Memory.Dir = getEnv("MEALPREP_MEMORY_DIR", c.Memory.Dir)
	c.Memory.SQLitePath = getEnv("MEALPREP_SQLITE_PATH", c.Memory.SQLitePath)
	c.Memory.Collection = getEnv("MEALPREP_FIRESTORE_COLLECTION", c.Memory.Collection)

	c.LLM.UseMock = getBoolEnv("MEALPREP_USE_MOCK_LLM", c.LLM.UseMock)
	c.LLM.GCPProjectID = getEnv("MEALPREP_GCP_PROJECT", c.LLM.GCPProjectID)
	c.LLM.GCPLocation = getEnv("MEALPREP_GCP_LOCATION", c.LLM.GCPLocation)
	c.LLM.ModelName = getEnv("MEALPREP_MODEL_NAME", c.LLM.ModelName)

	dur("MEALPREP_PLANNER_TIMEOUT", &c.Workflow.PlannerTimeout)
	dur("MEALPREP_RECIPE_TIMEOUT", &c.Workflow.RecipeTimeout)
	dur("MEALPREP_LIST_TIMEOUT", &c.Workflow.ListTimeout)
	dur("MEALPREP_NUTRITION_TIMEOUT", &c.Workflow.NutritionTimeout)
	dur("MEALPREP_RECIPE_LATENCY", &c.Workflow.RecipeLatency)
	if v := os.Getenv("MEALPREP_RECIPE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("MEALPREP_RECIPE_CONCURRENCY: %w", err))
		} else {
			c.Workflow.RecipeConcurrency = n
		}
	}

	return result.ErrorOrNil()
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	add := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	if c.Port == "" {
		add("port is required")
	}
	if c.Session.Timeout <= 0 {
		add("session.timeout must be positive")
	}
	if c.Session.SweepInterval < 0 {
		add("session.sweep_interval must not be negative")
	}

	switch c.Memory.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Memory.Dir == "" {
			add("memory.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Memory.SQLitePath == "" {
			add("memory.sqlite_path is required for the sqlite backend")
		}
	case BackendFirestore:
		if c.LLM.GCPProjectID == "" {
			add("MEALPREP_GCP_PROJECT must be set for the firestore backend")
		}
	default:
		add("unknown memory backend %q", c.Memory.Backend)
	}

	if !c.LLM.UseMock && c.LLM.GCPProjectID == "" {
		add("MEALPREP_GCP_PROJECT must be set when the mock LLM is disabled")
	}

	w := c.Workflow
	for name, d := range map[string]time.Duration{
		"planner_timeout":   w.PlannerTimeout,
		"recipe_timeout":    w.RecipeTimeout,
		"list_timeout":      w.ListTimeout,
		"nutrition_timeout": w.NutritionTimeout,
	} {
		if d <= 0 {
			add("workflow.%s must be positive", name)
		}
	}
	if w.RecipeConcurrency < 1 {
		add("workflow.recipe_concurrency must be at least 1")
	}
	if w.RecipeLatency < 0 {
		add("workflow.recipe_latency must not be negative")
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	return nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDurationEnv(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
