package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
models:
  main:
    provider: mock
roles:
  writer: main
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, DefaultServerAddr, cfg.ServerAddr)
	assert.Equal(t, DefaultMaxTransitions, cfg.MaxTransitions)
	assert.Equal(t, DefaultRequestedMax, cfg.Outline.RequestedMax)
	assert.Equal(t, DefaultHardMax, cfg.Outline.HardMax)
	assert.Equal(t, DefaultPlanContext, cfg.ContextLimits.Plan)
	assert.Equal(t, DefaultDraftContext, cfg.ContextLimits.Draft)
	assert.Equal(t, ReviewShared, cfg.ReviewPolicy)
	assert.Equal(t, RoleWriter, cfg.Fallbacks[RoleReviewer])
	assert.True(t, cfg.Search.SearchEnabled())

	m := cfg.Models["main"]
	assert.Equal(t, DefaultModelTimeout, m.Timeout)
	require.NotNil(t, m.MaxRetries)
	assert.Equal(t, DefaultMaxRetries, *m.MaxRetries)
}

func TestParseReadsDurationsAndEnvKeys(t *testing.T) {
	t.Setenv("REPORT_TEST_KEY", "sk-test")
	t.Setenv("REPORT_TEST_URL", "https://example.openai.azure.com")
	data := `
max_transitions: 50
models:
  gpt:
    provider: azure
    model: gpt-5-mini
    base_url: ${REPORT_TEST_URL}
    api_version: 2024-05-01-preview
    api_key_env: REPORT_TEST_KEY
    timeout: 90s
roles:
  writer: gpt
search:
  enabled: false
  timeout: 3s
`
	cfg, err := Parse([]byte(data))
	require.NoError(t, err)

	m := cfg.Models["gpt"]
	assert.Equal(t, "sk-test", m.APIKey)
	assert.Equal(t, "https://example.openai.azure.com", m.BaseURL)
	assert.Equal(t, 90*time.Second, m.Timeout)
	assert.Equal(t, 50, cfg.MaxTransitions)
	assert.False(t, cfg.Search.SearchEnabled())
	assert.Equal(t, 3*time.Second, cfg.Search.Timeout)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := map[string]string{
		"no models": `
roles:
  writer: main
`,
		"unknown provider": `
models:
  main:
    provider: bard
roles:
  writer: main
`,
		"unbound writer": `
models:
  main:
    provider: mock
`,
		"role names missing model": `
models:
  main:
    provider: mock
roles:
  writer: main
  reviewer: claude
`,
		"writer fallback": `
models:
  main:
    provider: mock
roles:
  writer: main
fallbacks:
  writer: planner
`,
		"fallback cycle": `
models:
  main:
    provider: mock
roles:
  writer: main
fallbacks:
  planner: researcher
  researcher: planner
`,
		"three role fallback cycle": `
models:
  main:
    provider: mock
roles:
  writer: main
fallbacks:
  planner: researcher
  researcher: reviewer
  reviewer: planner
`,
		"self fallback": `
models:
  main:
    provider: mock
roles:
  writer: main
fallbacks:
  reviewer: reviewer
`,
		"requested above hard max": `
outline:
  requested_max: 30
  hard_max: 20
models:
  main:
    provider: mock
roles:
  writer: main
`,
		"bad review policy": `
review_policy: sometimes
models:
  main:
    provider: mock
roles:
  writer: main
`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestValidateFallbackChains(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	cfg.Fallbacks = map[string]string{
		RoleResearcher: RolePlanner,
		RolePlanner:    RoleReviewer,
		RoleReviewer:   RoleWriter,
	}
	assert.NoError(t, cfg.Validate())

	cfg.Fallbacks[RoleReviewer] = RoleResearcher
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback cycle")
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Roles.Writer)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRoleBindingLookup(t *testing.T) {
	r := RoleBindings{Planner: "local", Writer: "gpt", Reviewer: "claude"}
	assert.Equal(t, "local", r.Binding(RolePlanner))
	assert.Equal(t, "", r.Binding(RoleResearcher))
	assert.Equal(t, "gpt", r.Binding(RoleWriter))
	assert.Equal(t, "claude", r.Binding(RoleReviewer))
	assert.Equal(t, "", r.Binding("editor"))
}

func TestExampleConfigParses(t *testing.T) {
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_API_KEY", "test-key")

	cfg, err := Load(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "https://example.openai.azure.com", cfg.Models["azure-gpt4o"].BaseURL)
	assert.Equal(t, "test-key", cfg.Models["azure-gpt4o"].APIKey)
	assert.Equal(t, 120*time.Second, cfg.Models["azure-gpt4o"].Timeout)
	assert.Equal(t, "claude", cfg.Roles.Reviewer)
	assert.Equal(t, "EV_Report", cfg.Output.Prefix)
	assert.True(t, cfg.Search.SearchEnabled())
}
