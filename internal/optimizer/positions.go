package optimizer

import "sort"

// Position categories of the candidate pool.
const (
	Goalkeeper        = "Goalkeeper"
	RightBack         = "Right-Back"
	LeftBack          = "Left-Back"
	CentreBack        = "Centre-Back"
	DefensiveMidfield = "Defensive Midfield"
	CentralMidfield   = "Central Midfield"
	AttackingMidfield = "Attacking Midfield"
	RightWinger       = "Right Winger"
	LeftWinger        = "Left Winger"
	CentreForward     = "Centre-Forward"
)

// PositionGroup decides which scoring multiplier a category receives.
type PositionGroup string

const (
	GroupNeutral   PositionGroup = "neutral"
	GroupDefensive PositionGroup = "defensive"
	GroupAttacking PositionGroup = "attacking"
)

var positionGroups = map[string]PositionGroup{
	Goalkeeper:        GroupNeutral,
	RightBack:         GroupDefensive,
	LeftBack:          GroupDefensive,
	CentreBack:        GroupDefensive,
	DefensiveMidfield: GroupDefensive,
	CentralMidfield:   GroupNeutral,
	AttackingMidfield: GroupAttacking,
	RightWinger:       GroupAttacking,
	LeftWinger:        GroupAttacking,
	CentreForward:     GroupAttacking,
}

// GroupOf returns the group of a category. Labels outside the catalogue are neutral.
func GroupOf(position string) PositionGroup {
	if group, ok := positionGroups[position]; ok {
		return group
	}
	return GroupNeutral
}

// IsKnownPosition reports whether the label is one of the catalogued categories.
func IsKnownPosition(position string) bool {
	_, ok := positionGroups[position]
	return ok
}

// Positions lists the catalogued categories in alphabetical order.
func Positions() []string {
	positions := make([]string, 0, len(positionGroups))
	for position := range positionGroups {
		positions = append(positions, position)
	}
	sort.Strings(positions)
	return positions
}
