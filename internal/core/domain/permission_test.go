package domain

import "testing"

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		name      string
		pattern   string
		candidate string
		want      bool
	}{
		{"bare wildcard matches anything", "*", "delete:records", true},
		{"exact match", "write:events", "write:events", true},
		{"exact mismatch", "write:events", "write:campaigns", false},
		{"action glob", "write:*", "write:events", true},
		{"action glob wrong action", "write:*", "read:events", false},
		{"resource glob", "*:events", "write:events", true},
		{"glob is anchored", "write:*", "overwrite:events", false},
		{"no substring match without wildcard", "write", "write:events", false},
		{"inner glob", "write:camp*", "write:campaigns", true},
		{"inner glob mismatch", "write:camp*", "write:challenges", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchPattern(tc.pattern, tc.candidate); got != tc.want {
				t.Errorf("MatchPattern(%q, %q) = %v, want %v", tc.pattern, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestMatchAny(t *testing.T) {
	patterns := []string{"read:*", "write:events"}

	if !MatchAny(patterns, "read:campaigns") {
		t.Error("expected read:campaigns to match read:*")
	}
	if !MatchAny(patterns, "write:events") {
		t.Error("expected write:events to match exactly")
	}
	if MatchAny(patterns, "write:campaigns") {
		t.Error("expected write:campaigns to match nothing")
	}
	if MatchAny(nil, "read:events") {
		t.Error("expected empty pattern list to match nothing")
	}
}

func TestCandidateForm(t *testing.T) {
	check := PermissionCheck{Resource: "events", Action: "write"}
	if got := check.Candidate(); got != "write:events" {
		t.Errorf("Candidate() = %q, want %q", got, "write:events")
	}
}

func TestRoleTablePolicy(t *testing.T) {
	table := DefaultRoleTable()

	policy, ok := table.Policy(WorkspaceOrganization, "coordinator")
	if !ok {
		t.Fatal("expected coordinator policy for organization workspaces")
	}
	if len(policy.Permissions) == 0 {
		t.Error("expected coordinator to carry permissions")
	}

	if _, ok := table.Policy(WorkspaceOrganization, "nonexistent"); ok {
		t.Error("expected unknown role to have no policy")
	}
	if _, ok := table.Policy(WorkspaceType("bogus"), "member"); ok {
		t.Error("expected unknown workspace type to have no policy")
	}
}
