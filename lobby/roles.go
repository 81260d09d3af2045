package lobby

// Role is the capability tag that decides who may act on a prompt.
type Role int

const (
	RoleNavigator Role = iota
	RoleGunner
	RoleTrapper
	RoleScout
)

// Roles lists every role a full crew fills.
var Roles = []Role{RoleNavigator, RoleGunner, RoleTrapper, RoleScout}

func (r Role) String() string {
	switch r {
	case RoleNavigator:
		return "Navigator"
	case RoleGunner:
		return "Gunner"
	case RoleTrapper:
		return "Trapper"
	case RoleScout:
		return "Scout"
	default:
		return "Unknown"
	}
}

// Participant is one joined player and the role they drew.
type Participant struct {
	ID   string
	Role Role
}

// Roster is the crew in join order.
type Roster []Participant

// Holder returns the participant holding role.
func (r Roster) Holder(role Role) (Participant, bool) {
	for _, p := range r {
		if p.Role == role {
			return p, true
		}
	}
	return Participant{}, false
}

// Member returns the participant with the given id.
func (r Roster) Member(id string) (Participant, bool) {
	for _, p := range r {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// IDs returns the participant ids in join order.
func (r Roster) IDs() []string {
	ids := make([]string, 0, len(r))
	for _, p := range r {
		ids = append(ids, p.ID)
	}
	return ids
}

// Complete reports whether every role is held by exactly one participant.
func (r Roster) Complete() bool {
	if len(r) != len(Roles) {
		return false
	}
	seen := make(map[Role]bool, len(Roles))
	for _, p := range r {
		if seen[p.Role] {
			return false
		}
		seen[p.Role] = true
	}
	return true
}
