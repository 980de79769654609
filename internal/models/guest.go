package models

// GuestRecord is one row of the guest list. Rows are written by the import
// command and only read by the bot.
type GuestRecord struct {
	GuestCode      string       `json:"guest_code"`
	Name           string       `json:"name,omitempty"`
	Alias          string       `json:"alias,omitempty"`
	DisplayName    string       `json:"display_name,omitempty"`
	SeatNumber     *int         `json:"seat_number,omitempty"`
	GroupCode      string       `json:"group_code,omitempty"`
	RelationRole   RelationRole `json:"relation_role"`
	Representative *string      `json:"representative,omitempty"`
	Attending      bool         `json:"attending"`
}

// ShowName returns the first non-empty of display name, name and alias.
func (g GuestRecord) ShowName() string {
	switch {
	case g.DisplayName != "":
		return g.DisplayName
	case g.Name != "":
		return g.Name
	default:
		return g.Alias
	}
}

// Seat returns the assigned table and whether one is assigned.
func (g GuestRecord) Seat() (int, bool) {
	if g.SeatNumber == nil || *g.SeatNumber <= 0 {
		return 0, false
	}
	return *g.SeatNumber, true
}

// AnchorCode returns the guest code of the family this record belongs to.
// The second return value is false when a dependent row has no
// representative and falls back to its own code.
func (g GuestRecord) AnchorCode() (string, bool) {
	if g.RelationRole == RoleSelf {
		return g.GuestCode, true
	}
	if g.Representative != nil && *g.Representative != "" {
		return *g.Representative, true
	}
	return g.GuestCode, false
}

// RelationRole describes how a guest relates to the family anchor
type RelationRole string

const (
	RoleSelf   RelationRole = "self"
	RoleSpouse RelationRole = "spouse"
	RoleChild  RelationRole = "child"
	RoleGuest  RelationRole = "guest"
	RoleOther  RelationRole = "other"
)

// Rank orders roles within a family. Unknown roles sort with "other".
func (r RelationRole) Rank() int {
	switch r {
	case RoleSelf:
		return 0
	case RoleSpouse:
		return 1
	case RoleChild:
		return 2
	case RoleGuest:
		return 3
	default:
		return 4
	}
}

// ParseRelationRole normalizes an imported role value. Anything outside the
// known set becomes RoleOther.
func ParseRelationRole(s string) RelationRole {
	switch r := RelationRole(s); r {
	case RoleSelf, RoleSpouse, RoleChild, RoleGuest, RoleOther:
		return r
	default:
		return RoleOther
	}
}

// FamilyBundle is a resolved family: the anchor, the label shown for the
// group and the members in display order.
type FamilyBundle struct {
	AnchorCode string        `json:"anchor_code"`
	Who        string        `json:"who"`
	Members    []GuestRecord `json:"members"`
}
