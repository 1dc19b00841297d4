package domain

// DefaultRoleTable returns the built-in role vocabulary for every workspace
// type. Callers treat the result as read-only; tests construct their own
// tables instead of mutating this one.
func DefaultRoleTable() RoleTable {
	return RoleTable{
		WorkspaceUser: {
			"owner": {Permissions: []string{"*"}},
			"viewer": {
				Permissions:  []string{"read:*"},
				Restrictions: []string{"write:*", "delete:*"},
			},
		},
		WorkspaceExpert: {
			"lead": {Permissions: []string{"*"}},
			"evaluator": {
				Permissions:  []string{"read:*", "write:evaluations", "write:feedback"},
				Restrictions: []string{"delete:*", "write:settings"},
			},
			"member": {
				Permissions:  []string{"read:*", "write:comments"},
				Restrictions: []string{"delete:*"},
			},
		},
		WorkspaceOrganization: {
			"admin": {Permissions: []string{"*"}},
			"manager": {
				Permissions:  []string{"read:*", "write:*"},
				Restrictions: []string{"delete:workspace", "write:billing"},
			},
			"coordinator": {
				Permissions: []string{
					"read:*",
					"write:events",
					"write:campaigns",
					"write:challenges",
				},
				Restrictions: []string{"write:policies", "delete:*"},
			},
			"member": {
				Permissions:  []string{"read:*", "write:ideas", "write:comments"},
				Restrictions: []string{"delete:*", "write:settings"},
			},
		},
		WorkspaceTeam: {
			"lead": {Permissions: []string{"*"}},
			"manager": {
				Permissions:  []string{"read:*", "write:*"},
				Restrictions: []string{"delete:workspace"},
			},
			"member": {
				Permissions:  []string{"read:*", "write:tasks", "write:comments"},
				Restrictions: []string{"delete:*", "write:settings"},
			},
		},
		WorkspaceProject: {
			"manager": {Permissions: []string{"*"}},
			"contributor": {
				Permissions:  []string{"read:*", "write:tasks", "write:deliverables"},
				Restrictions: []string{"delete:*", "write:settings"},
			},
			"observer": {
				Permissions:  []string{"read:*"},
				Restrictions: []string{"write:*", "delete:*"},
			},
		},
		WorkspaceAdmin: {
			"super_admin": {Permissions: []string{"*"}},
			"admin": {
				Permissions:  []string{"*"},
				Restrictions: []string{"delete:system", "write:system_settings"},
			},
			"moderator": {
				Permissions:  []string{"read:*", "write:moderation"},
				Restrictions: []string{"delete:*"},
			},
		},
		WorkspacePartner: {
			"manager": {
				Permissions:  []string{"read:*", "write:partnerships", "write:opportunities"},
				Restrictions: []string{"delete:*", "write:settings"},
			},
			"member": {
				Permissions:  []string{"read:*", "write:comments"},
				Restrictions: []string{"delete:*", "write:settings"},
			},
		},
		WorkspaceStakeholder: {
			"viewer": {
				Permissions:  []string{"read:reports", "read:dashboards", "read:events"},
				Restrictions: []string{"write:*", "delete:*"},
			},
		},
	}
}
