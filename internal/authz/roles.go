package authz

// Role is a membership role a collective holds on another collective.
type Role string

const (
	RoleHost                Role = "HOST"                 // holds money on behalf of the collective
	RoleAdmin               Role = "ADMIN"                // can approve expenses
	RoleMember              Role = "MEMBER"               // core contributor, cannot approve expenses
	RoleContributor         Role = "CONTRIBUTOR"          // gives time
	RoleBacker              Role = "BACKER"               // gives money
	RoleFundraiser          Role = "FUNDRAISER"           // deprecated
	RoleAttendee            Role = "ATTENDEE"             // free tier, e.g. event ticket
	RoleFollower            Role = "FOLLOWER"             // follows activities
	RoleConnectedCollective Role = "CONNECTED_COLLECTIVE" // connected-collective of the collective
)

// adminRoles grant administrative capability.
var adminRoles = []Role{RoleAdmin}

func roleStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
