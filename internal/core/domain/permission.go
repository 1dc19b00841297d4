package domain

import (
	"regexp"
	"strings"
	"sync"
)

// PermissionCheck describes a single capability question: may the principal
// perform Action on Resource, optionally qualified by Context.
type PermissionCheck struct {
	Resource string
	Action   string
	Context  map[string]string
}

// Candidate renders the check in the canonical "action:resource" form used
// for pattern matching.
func (c PermissionCheck) Candidate() string {
	return c.Action + ":" + c.Resource
}

// RolePolicy holds the static allow and deny pattern lists for one role.
// Restrictions always take precedence over permissions.
type RolePolicy struct {
	Permissions  []string
	Restrictions []string
}

// RoleTable maps workspace type and role name to the role's policy. Tables
// are immutable once constructed; evaluators receive them by injection.
type RoleTable map[WorkspaceType]map[string]RolePolicy

// Policy returns the policy for the given workspace type and role, if any.
func (t RoleTable) Policy(workspaceType WorkspaceType, role string) (RolePolicy, bool) {
	roles, ok := t[workspaceType]
	if !ok {
		return RolePolicy{}, false
	}
	policy, ok := roles[role]
	return policy, ok
}

var (
	globCacheMu sync.RWMutex
	globCache   = make(map[string]*regexp.Regexp)
)

// MatchPattern reports whether candidate matches pattern. A pattern matches
// when it is the bare wildcard "*", when it equals the candidate exactly, or
// when, with every "*" expanded to ".*" and anchored at both ends, it matches
// the full candidate. There is no substring matching outside explicit "*"
// tokens.
func MatchPattern(pattern, candidate string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == candidate {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	re := compileGlob(pattern)
	if re == nil {
		return false
	}
	return re.MatchString(candidate)
}

// MatchAny reports whether candidate matches at least one of the patterns.
func MatchAny(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if MatchPattern(p, candidate) {
			return true
		}
	}
	return false
}

func compileGlob(pattern string) *regexp.Regexp {
	globCacheMu.RLock()
	re, ok := globCache[pattern]
	globCacheMu.RUnlock()
	if ok {
		return re
	}

	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	compiled, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return nil
	}

	globCacheMu.Lock()
	globCache[pattern] = compiled
	globCacheMu.Unlock()

	return compiled
}
