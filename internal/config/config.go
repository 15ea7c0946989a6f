package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/dkoosis/gradefetch/internal/github"
	"github.com/dkoosis/gradefetch/pkg/fetch"
	"github.com/dkoosis/gradefetch/pkg/workflow"
)

// Constants for default values.
const (
	DefaultRateLimit  = 10.0
	DefaultOutputDir  = "."
	DefaultSummary    = "terminal"
	MaxConcurrency    = 64
	localConfigName   = ".gradefetch.yaml"
	dotEnvName        = ".env"
	xdgConfigDirName  = "gradefetch"
	xdgConfigFileName = "config.yaml"
)

// CliFlags holds the values of command-line flags.
type CliFlags struct {
	Concurrency int
	OutputDir   string
	Summary     string
	Debug       bool

	// Flags to track if they were explicitly set by the user
	ConcurrencySet bool
	OutputDirSet   bool
	SummarySet     bool
	DebugSet       bool
}

// FileConfig is the YAML configuration file.
type FileConfig struct {
	APIURL       string  `yaml:"api_url"`
	Concurrency  int     `yaml:"concurrency"`
	RateLimit    float64 `yaml:"rate_limit"`
	OutputDir    string  `yaml:"output_dir"`
	WorkflowPath string  `yaml:"workflow_path"`
	Event        string  `yaml:"event"`
	Summary      string  `yaml:"summary"`
	Debug        bool    `yaml:"debug"`
}

type envConfig struct {
	Token        string   `env:"GITHUB_TOKEN"`
	APIURL       string   `env:"GRADEFETCH_API_URL"`
	Concurrency  *int     `env:"GRADEFETCH_CONCURRENCY"`
	RateLimit    *float64 `env:"GRADEFETCH_RATE_LIMIT"`
	OutputDir    string   `env:"GRADEFETCH_OUTPUT_DIR"`
	WorkflowPath string   `env:"GRADEFETCH_WORKFLOW_PATH"`
	Debug        *bool    `env:"GRADEFETCH_DEBUG"`
}

// Config is the resolved configuration.
type Config struct {
	Token        string
	APIURL       string
	Concurrency  int
	RateLimit    float64
	OutputDir    string
	WorkflowPath string
	Event        string
	Summary      string
	Debug        bool

	// Resolution metadata (for debugging)
	FilePath          string // empty when no file was found
	ConcurrencySource string // "cli", "env", "file", "default"
	OutputDirSource   string
}

// Defaults returns the hardcoded configuration.
func Defaults() Config {
	return Config{
		APIURL:            github.DefaultBaseURL,
		Concurrency:       fetch.DefaultConcurrency,
		RateLimit:         DefaultRateLimit,
		OutputDir:         DefaultOutputDir,
		WorkflowPath:      workflow.DefaultPath,
		Event:             github.DefaultEvent,
		Summary:           DefaultSummary,
		ConcurrencySource: "default",
		OutputDirSource:   "default",
	}
}

// Loader reads configuration sources. The zero value is not usable; see
// NewLoader.
type Loader struct {
	// Dir is the working directory searched for .gradefetch.yaml and .env.
	Dir string
	// ConfigHome is the XDG config directory; empty skips the XDG lookup.
	ConfigHome string
	// Environ is the process environment.
	Environ map[string]string
}

// NewLoader returns a loader for the current process.
func NewLoader() Loader {
	dir, _ := os.Getwd()
	home, err := os.UserConfigDir()
	if err != nil || home == "/" {
		home = ""
	}
	return Loader{Dir: dir, ConfigHome: home, Environ: env.ToMap(os.Environ())}
}

// Resolve merges all sources with flags taking precedence.
func (l Loader) Resolve(flags CliFlags) (Config, error) {
	cfg := Defaults()

	path := l.configPath()
	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		applyFile(&cfg, fc)
		cfg.FilePath = path
	}

	environ, err := l.environment()
	if err != nil {
		return cfg, err
	}
	var ec envConfig
	if err := env.ParseWithOptions(&ec, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	applyEnv(&cfg, ec)
	applyFlags(&cfg, flags)

	return cfg, nil
}

// configPath checks the working directory first, then the XDG config dir.
func (l Loader) configPath() string {
	local := filepath.Join(l.Dir, localConfigName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if l.ConfigHome == "" {
		return ""
	}
	xdg := filepath.Join(l.ConfigHome, xdgConfigDirName, xdgConfigFileName)
	if _, err := os.Stat(xdg); err == nil {
		return xdg
	}
	return ""
}

// environment overlays the process environment on .env.
func (l Loader) environment() (map[string]string, error) {
	merged := map[string]string{}
	f, err := os.Open(filepath.Join(l.Dir, dotEnvName))
	switch {
	case err == nil:
		defer f.Close()
		vars, err := ParseDotEnv(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dotEnvName, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("open %s: %w", dotEnvName, err)
	}
	for k, v := range l.Environ {
		merged[k] = v
	}
	return merged, nil
}

func readFile(path string) (FileConfig, error) {
	var fc FileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func applyFile(cfg *Config, fc FileConfig) {
	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.Concurrency != 0 {
		cfg.Concurrency = fc.Concurrency
		cfg.ConcurrencySource = "file"
	}
	if fc.RateLimit != 0 {
		cfg.RateLimit = fc.RateLimit
	}
	if fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
		cfg.OutputDirSource = "file"
	}
	if fc.WorkflowPath != "" {
		cfg.WorkflowPath = fc.WorkflowPath
	}
	if fc.Event != "" {
		cfg.Event = fc.Event
	}
	if fc.Summary != "" {
		cfg.Summary = fc.Summary
	}
	cfg.Debug = cfg.Debug || fc.Debug
}

func applyEnv(cfg *Config, ec envConfig) {
	cfg.Token = strings.TrimSpace(ec.Token)
	if ec.APIURL != "" {
		cfg.APIURL = ec.APIURL
	}
	if ec.Concurrency != nil {
		cfg.Concurrency = *ec.Concurrency
		cfg.ConcurrencySource = "env"
	}
	if ec.RateLimit != nil {
		cfg.RateLimit = *ec.RateLimit
	}
	if ec.OutputDir != "" {
		cfg.OutputDir = ec.OutputDir
		cfg.OutputDirSource = "env"
	}
	if ec.WorkflowPath != "" {
		cfg.WorkflowPath = ec.WorkflowPath
	}
	if ec.Debug != nil {
		cfg.Debug = *ec.Debug
	}
}

func applyFlags(cfg *Config, f CliFlags) {
	if f.ConcurrencySet {
		cfg.Concurrency = f.Concurrency
		cfg.ConcurrencySource = "cli"
	}
	if f.OutputDirSet {
		cfg.OutputDir = f.OutputDir
		cfg.OutputDirSource = "cli"
	}
	if f.SummarySet {
		cfg.Summary = f.Summary
	}
	if f.DebugSet {
		cfg.Debug = f.Debug
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Token == "" {
		result = multierror.Append(result, errors.New("GITHUB_TOKEN is not set (environment or .env)"))
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		result = multierror.Append(result, fmt.Errorf("concurrency %d (from %s) must be between 1 and %d", c.Concurrency, c.ConcurrencySource, MaxConcurrency))
	}
	if c.RateLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate limit %g must be positive", c.RateLimit))
	}
	switch c.Summary {
	case "terminal", "llm", "json", "none":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown summary format %q", c.Summary))
	}
	if strings.TrimSpace(c.WorkflowPath) == "" {
		result = multierror.Append(result, errors.New("workflow path is empty"))
	}
	return result.ErrorOrNil()
}

// ParseDotEnv reads KEY=VALUE lines. Blank lines, # comments and an
// optional "export " prefix are accepted; matching surrounding quotes are
// stripped.
func ParseDotEnv(r io.Reader) (map[string]string, error) {
	vars := map[string]string{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		text = strings.TrimPrefix(text, "export ")
		key, value, ok := strings.Cut(text, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE", line)
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		vars[key] = value
	}
	return vars, sc.Err()
}
