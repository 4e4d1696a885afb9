package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerAddr     = ":8080"
	DefaultMaxTransitions = 200
	DefaultRequestedMax   = 15
	DefaultHardMax        = 20
	DefaultPlanContext    = 2000
	DefaultDraftContext   = 3000
	DefaultModelTimeout   = 120 * time.Second
	DefaultMaxRetries     = 2
	DefaultSearchResults  = 5
	DefaultSearchTimeout  = 15 * time.Second
	DefaultSearchInterval = time.Second
	DefaultOutputDir      = "output"
	DefaultOutputPrefix   = "Report"
)

// Review policies decide whether the reviewer may share the writer's model.
const (
	ReviewShared   = "shared"
	ReviewDistinct = "distinct"
)

// Logical role names used by the role bindings and fallbacks.
const (
	RolePlanner    = "planner"
	RoleResearcher = "researcher"
	RoleWriter     = "writer"
	RoleReviewer   = "reviewer"
)

// Config is the whole application configuration, loaded from YAML.
type Config struct {
	ServerAddr     string                 `yaml:"server_addr,omitempty"`
	LogLevel       string                 `yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	MaxTransitions int                    `yaml:"max_transitions,omitempty" validate:"gte=0"`
	Outline        OutlineConfig          `yaml:"outline"`
	ContextLimits  ContextLimits          `yaml:"context_limits"`
	Models         map[string]ModelConfig `yaml:"models" validate:"required,min=1,dive"`
	Roles          RoleBindings           `yaml:"roles"`
	Fallbacks      map[string]string      `yaml:"fallbacks,omitempty"`
	ReviewPolicy   string                 `yaml:"review_policy,omitempty" validate:"omitempty,oneof=shared distinct"`
	Search         SearchConfig           `yaml:"search"`
	Output         OutputConfig           `yaml:"output"`
}

// OutlineConfig holds the double bound on outline length: RequestedMax is
// what the planner is asked for, HardMax is what is actually kept.
type OutlineConfig struct {
	RequestedMax int `yaml:"requested_max,omitempty" validate:"gte=0"`
	HardMax      int `yaml:"hard_max,omitempty" validate:"gte=0"`
}

// ContextLimits bounds how much uploaded context each stage sees.
type ContextLimits struct {
	Plan  int `yaml:"plan,omitempty" validate:"gte=0"`
	Draft int `yaml:"draft,omitempty" validate:"gte=0"`
}

// ModelConfig describes one text-generation backend.
type ModelConfig struct {
	Provider    string        `yaml:"provider" validate:"required,oneof=openai azure deepseek ollama anthropic mock"`
	Model       string        `yaml:"model,omitempty"`
	APIKey      string        `yaml:"api_key,omitempty"`
	APIKeyEnv   string        `yaml:"api_key_env,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	APIVersion  string        `yaml:"api_version,omitempty"`
	Temperature *float64      `yaml:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxRetries  *int          `yaml:"max_retries,omitempty" validate:"omitempty,gte=0"`
}

// RoleBindings names the model entry serving each role.
type RoleBindings struct {
	Planner    string `yaml:"planner,omitempty"`
	Researcher string `yaml:"researcher,omitempty"`
	Writer     string `yaml:"writer" validate:"required"`
	Reviewer   string `yaml:"reviewer,omitempty"`
}

// SearchConfig configures the web research capability.
type SearchConfig struct {
	Enabled     *bool         `yaml:"enabled,omitempty"`
	Endpoint    string        `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	MaxResults  int           `yaml:"max_results,omitempty" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MinInterval time.Duration `yaml:"min_interval,omitempty"`
	Synthesize  bool          `yaml:"synthesize,omitempty"`
}

// OutputConfig controls where exported documents land.
type OutputConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	Title  string `yaml:"title,omitempty"`
}

// SearchEnabled reports whether web research is switched on (default true).
func (c SearchConfig) SearchEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Binding returns the model entry name bound to role, or "" when unbound.
func (r RoleBindings) Binding(role string) string {
	switch role {
	case RolePlanner:
		return r.Planner
	case RoleResearcher:
		return r.Researcher
	case RoleWriter:
		return r.Writer
	case RoleReviewer:
		return r.Reviewer
	default:
		return ""
	}
}

// Load reads a YAML config from disk. A .env file next to the working
// directory is loaded first so ${VAR} references and api_key_env resolve.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// Parse decodes YAML bytes, expands environment references, applies
// defaults and validates the result.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	cfg.resolveKeys()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero value with its documented default.
func (c *Config) ApplyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxTransitions == 0 {
		c.MaxTransitions = DefaultMaxTransitions
	}
	if c.Outline.RequestedMax == 0 {
		c.Outline.RequestedMax = DefaultRequestedMax
	}
	if c.Outline.HardMax == 0 {
		c.Outline.HardMax = DefaultHardMax
	}
	if c.ContextLimits.Plan == 0 {
		c.ContextLimits.Plan = DefaultPlanContext
	}
	if c.ContextLimits.Draft == 0 {
		c.ContextLimits.Draft = DefaultDraftContext
	}
	if c.ReviewPolicy == "" {
		c.ReviewPolicy = ReviewShared
	}
	if c.Fallbacks == nil {
		c.Fallbacks = map[string]string{
			RolePlanner:    RoleWriter,
			RoleResearcher: RoleWriter,
			RoleReviewer:   RoleWriter,
		}
	}
	for name, m := range c.Models {
		if m.Timeout == 0 {
			m.Timeout = DefaultModelTimeout
		}
		if m.MaxRetries == nil {
			n := DefaultMaxRetries
			m.MaxRetries = &n
		}
		c.Models[name] = m
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = DefaultSearchResults
	}
	if c.Search.Timeout == 0 {
		c.Search.Timeout = DefaultSearchTimeout
	}
	if c.Search.MinInterval == 0 {
		c.Search.MinInterval = DefaultSearchInterval
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.Prefix == "" {
		c.Output.Prefix = DefaultOutputPrefix
	}
}

func (c *Config) resolveKeys() {
	for name, m := range c.Models {
		if m.APIKey == "" && m.APIKeyEnv != "" {
			m.APIKey = os.Getenv(m.APIKeyEnv)
			c.Models[name] = m
		}
	}
}

// Validate checks struct tags and cross-field rules: bound roles must name
// existing models, fallbacks must name known roles and may not form cycles.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Outline.RequestedMax > c.Outline.HardMax {
		return fmt.Errorf("invalid config: outline.requested_max (%d) exceeds outline.hard_max (%d)", c.Outline.RequestedMax, c.Outline.HardMax)
	}
	for _, role := range []string{RolePlanner, RoleResearcher, RoleWriter, RoleReviewer} {
		name := c.Roles.Binding(role)
		if name == "" {
			continue
		}
		if _, ok := c.Models[name]; !ok {
			return fmt.Errorf("invalid config: role %s bound to unknown model %q", role, name)
		}
	}
	for from, to := range c.Fallbacks {
		if !knownRole(from) || !knownRole(to) {
			return fmt.Errorf("invalid config: fallback %s -> %s names an unknown role", from, to)
		}
		if from == RoleWriter {
			return errors.New("invalid config: writer cannot have a fallback")
		}
	}
	for from := range c.Fallbacks {
		if err := c.checkFallbackChain(from); err != nil {
			return err
		}
	}
	return nil
}

// checkFallbackChain follows fallbacks from role and fails when a role
// repeats.
func (c Config) checkFallbackChain(role string) error {
	seen := map[string]bool{role: true}
	chain := []string{role}
	for cur := role; ; {
		next, ok := c.Fallbacks[cur]
		if !ok || next == "" {
			return nil
		}
		chain = append(chain, next)
		if seen[next] {
			return fmt.Errorf("invalid config: fallback cycle %s", strings.Join(chain, " -> "))
		}
		seen[next] = true
		cur = next
	}
}

func knownRole(role string) bool {
	switch strings.TrimSpace(role) {
	case RolePlanner, RoleResearcher, RoleWriter, RoleReviewer:
		return true
	}
	return false
}
