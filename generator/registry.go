package generator

import (
	"fmt"
	"log/slog"
	"sort"

	"auto_report_generator/config"
)

// Factory constructs the client for one model entry.
type Factory func(name string, m config.ModelConfig) (LLMClient, error)

// Registry maps logical roles to the clients serving them. It is built once
// at startup and is safe to share between runs.
type Registry struct {
	clients map[string]LLMClient
	models  map[string]string
}

var resolveOrder = []string{config.RoleWriter, config.RolePlanner, config.RoleResearcher, config.RoleReviewer}

// NewRegistry builds every bound model eagerly. A role whose model is
// unbound or fails to construct takes the client of its fallback role
// (one hop). The writer has no fallback; planner and reviewer must resolve;
// the researcher may stay empty, which disables research synthesis.
func NewRegistry(cfg config.Config, factory Factory, logger *slog.Logger) (*Registry, error) {
	if factory == nil {
		factory = NewClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "registry")

	built := make(map[string]LLMClient)
	buildErrs := make(map[string]error)
	build := func(name string) (LLMClient, error) {
		if c, ok := built[name]; ok {
			return c, nil
		}
		if err, ok := buildErrs[name]; ok {
			return nil, err
		}
		m, ok := cfg.Models[name]
		if !ok {
			err := fmt.Errorf("model %q not configured", name)
			buildErrs[name] = err
			return nil, err
		}
		c, err := factory(name, m)
		if err != nil {
			buildErrs[name] = err
			return nil, err
		}
		built[name] = c
		return c, nil
	}

	r := &Registry{clients: make(map[string]LLMClient), models: make(map[string]string)}
	for _, role := range resolveOrder {
		name := cfg.Roles.Binding(role)
		if name == "" {
			continue
		}
		c, err := build(name)
		if err != nil {
			if role == config.RoleWriter {
				return nil, fmt.Errorf("build writer model %q: %w", name, err)
			}
			logger.Warn("model failed to construct, trying fallback", "role", role, "model", name, "error", err)
			continue
		}
		r.clients[role] = c
		r.models[role] = name
	}
	if _, ok := r.clients[config.RoleWriter]; !ok {
		return nil, fmt.Errorf("no model bound to role %s", config.RoleWriter)
	}

	// Fallbacks resolve against directly built roles only: one hop.
	direct := make(map[string]LLMClient, len(r.clients))
	directModels := make(map[string]string, len(r.models))
	for role, c := range r.clients {
		direct[role] = c
		directModels[role] = r.models[role]
	}
	for _, role := range resolveOrder {
		if _, ok := direct[role]; ok {
			continue
		}
		target := cfg.Fallbacks[role]
		if target == "" {
			continue
		}
		c, ok := direct[target]
		if !ok {
			continue
		}
		r.clients[role] = c
		r.models[role] = directModels[target]
		logger.Info("role uses fallback", "role", role, "fallback", target, "model", directModels[target])
	}

	for _, role := range []string{config.RolePlanner, config.RoleReviewer} {
		if _, ok := r.clients[role]; !ok {
			return nil, fmt.Errorf("no model available for role %s", role)
		}
	}
	if r.models[config.RoleReviewer] == r.models[config.RoleWriter] {
		if cfg.ReviewPolicy == config.ReviewDistinct {
			return nil, fmt.Errorf("review_policy distinct requires a reviewer model different from the writer (%q)", r.models[config.RoleWriter])
		}
		logger.Warn("reviewer shares the writer model; review is not cross-checked", "model", r.models[config.RoleWriter])
	}
	return r, nil
}

// RegistryFromClients wraps ready-made clients keyed by role. Roles missing
// from the map are served by the writer, except the researcher.
func RegistryFromClients(clients map[string]LLMClient) *Registry {
	r := &Registry{clients: make(map[string]LLMClient), models: make(map[string]string)}
	for role, c := range clients {
		if c == nil {
			continue
		}
		r.clients[role] = c
		r.models[role] = role
	}
	if w, ok := r.clients[config.RoleWriter]; ok {
		for _, role := range []string{config.RolePlanner, config.RoleReviewer} {
			if _, ok := r.clients[role]; !ok {
				r.clients[role] = w
				r.models[role] = config.RoleWriter
			}
		}
	}
	return r
}

// Client returns the client bound to role.
func (r *Registry) Client(role string) (LLMClient, bool) {
	c, ok := r.clients[role]
	return c, ok
}

// Bindings reports which model entry each resolved role uses.
func (r *Registry) Bindings() map[string]string {
	out := make(map[string]string, len(r.models))
	for role, name := range r.models {
		out[role] = name
	}
	return out
}

// Roles lists the resolved roles, sorted.
func (r *Registry) Roles() []string {
	roles := make([]string, 0, len(r.clients))
	for role := range r.clients {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}
