package policy

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/casegate/casegate-backend/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule lists the roles permitted to perform one action.
type Rule struct {
	Roles     []domain.Role `yaml:"roles" json:"roles"`
	OwnerOnly bool          `yaml:"owner_only" json:"owner_only"`
}

// Rules is a versioned action to role table.
type Rules struct {
	Version string                 `yaml:"version" json:"version"`
	Actions map[domain.Action]Rule `yaml:"actions" json:"actions"`
}

// DefaultRules returns the table compiled into the binary.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads a rule table from path. An empty path yields DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse policy rules: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate rejects tables that reference unknown actions or roles.
func (r *Rules) Validate() error {
	if r.Version == "" {
		return fmt.Errorf("policy rules: version is required")
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("policy rules: no actions defined")
	}
	for action, rule := range r.Actions {
		if !action.IsValid() {
			return fmt.Errorf("policy rules: unknown action %q", action)
		}
		if len(rule.Roles) == 0 {
			return fmt.Errorf("policy rules: action %q has no roles", action)
		}
		for _, role := range rule.Roles {
			if !role.IsValid() {
				return fmt.Errorf("policy rules: action %q: unknown role %q", action, role)
			}
		}
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate the engine's table.
func (r *Rules) clone() *Rules {
	out := &Rules{Version: r.Version, Actions: make(map[domain.Action]Rule, len(r.Actions))}
	for action, rule := range r.Actions {
		out.Actions[action] = Rule{Roles: slices.Clone(rule.Roles), OwnerOnly: rule.OwnerOnly}
	}
	return out
}
