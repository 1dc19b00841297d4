package domain

import "time"

// WorkspaceType identifies the kind of collaboration context a workspace
// represents. Each type owns its own role vocabulary.
type WorkspaceType string

const (
	WorkspaceUser         WorkspaceType = "user"
	WorkspaceExpert       WorkspaceType = "expert"
	WorkspaceOrganization WorkspaceType = "organization"
	WorkspaceTeam         WorkspaceType = "team"
	WorkspaceProject      WorkspaceType = "project"
	WorkspaceAdmin        WorkspaceType = "admin"
	WorkspacePartner      WorkspaceType = "partner"
	WorkspaceStakeholder  WorkspaceType = "stakeholder"
)

// Valid reports whether t is one of the known workspace types.
func (t WorkspaceType) Valid() bool {
	switch t {
	case WorkspaceUser, WorkspaceExpert, WorkspaceOrganization, WorkspaceTeam,
		WorkspaceProject, WorkspaceAdmin, WorkspacePartner, WorkspaceStakeholder:
		return true
	}
	return false
}

// WorkspaceRef identifies a single workspace instance.
type WorkspaceRef struct {
	Type WorkspaceType
	ID   string
}

// MembershipStatus describes the lifecycle state of a workspace membership.
// Only active memberships grant a role.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipInvited   MembershipStatus = "invited"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipRemoved   MembershipStatus = "removed"
)

// Membership maps a user to their role within one workspace.
type Membership struct {
	WorkspaceID string
	UserID      string
	Role        string
	Status      MembershipStatus
	JoinedAt    time.Time
}

// Active reports whether the membership currently grants its role.
func (m Membership) Active() bool {
	return m.Status == MembershipActive
}
