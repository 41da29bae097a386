// Package policy evaluates whether a role set authorizes a named action.
// Policy data is static, loaded once into a Casbin enforcer at startup, and
// immutable for the process lifetime.
package policy

import (
	_ "embed"
	"fmt"
	"log"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var casbinModelContent string

// DefaultPolicy is the reference role → allowed-actions mapping.
func DefaultPolicy() map[string][]string {
	return map[string][]string{
		"admin":   {"read_all", "write_all", "delete_all"},
		"user":    {"read_own", "write_own"},
		"auditor": {"read_all"},
	}
}

// Engine answers allow/deny questions against a static policy.
type Engine struct {
	enforcer *casbin.Enforcer
}

// NewEngine creates an enforcer with the embedded RBAC model and loads the
// given role → actions policy. The enforcer holds its policy in memory and
// is never mutated after this call.
func NewEngine(rolePolicy map[string][]string) (*Engine, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	for role, actions := range rolePolicy {
		for _, action := range actions {
			if _, err := enforcer.AddPolicy(role, action); err != nil {
				return nil, fmt.Errorf("add policy %s/%s: %w", role, action, err)
			}
		}
	}

	return &Engine{enforcer: enforcer}, nil
}

// IsAllowed reports whether at least one role in roles maps to an action set
// containing action. Unknown roles contribute no permissions; an empty role
// set is always denied. Evaluation is existential (order across roles does
// not matter) and the call has no side effects and no failure modes.
func (e *Engine) IsAllowed(roles []string, action string) bool {
	if len(roles) == 0 {
		return false
	}

	for _, role := range roles {
		allowed, err := e.enforcer.Enforce(role, action)
		if err != nil {
			// An enforcement error on one role must not grant or poison the
			// others; treat it as that role contributing nothing.
			log.Printf("policy: enforce error for role %s: %v", role, err)
			continue
		}
		if allowed {
			return true
		}
	}
	return false
}
