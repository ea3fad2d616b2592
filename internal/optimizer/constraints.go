package optimizer

import (
	"fmt"
	"sort"

	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// SquadSize is the number of players every formation fields.
const SquadSize = 11

// Formation identifiers.
const (
	Formation433 = "4-3-3"
	Formation442 = "4-4-2"
	Formation352 = "3-5-2"
)

// Formation maps position categories to the exact number of players required.
type Formation struct {
	ID           string
	Requirements map[string]int
}

// Size returns the number of players the formation fields.
func (f Formation) Size() int {
	total := 0
	for _, count := range f.Requirements {
		total += count
	}
	return total
}

// Categories returns the required categories in alphabetical order.
func (f Formation) Categories() []string {
	categories := make([]string, 0, len(f.Requirements))
	for category := range f.Requirements {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}

var formationOrder = []string{Formation433, Formation442, Formation352}

var formations = map[string]Formation{
	Formation433: {
		ID: Formation433,
		Requirements: map[string]int{
			Goalkeeper:        1,
			RightBack:         1,
			LeftBack:          1,
			CentreBack:        2,
			DefensiveMidfield: 1,
			CentralMidfield:   1,
			AttackingMidfield: 1,
			RightWinger:       1,
			LeftWinger:        1,
			CentreForward:     1,
		},
	},
	Formation442: {
		ID: Formation442,
		Requirements: map[string]int{
			Goalkeeper:        1,
			RightBack:         1,
			LeftBack:          1,
			CentreBack:        2,
			DefensiveMidfield: 1,
			CentralMidfield:   2,
			RightWinger:       1,
			LeftWinger:        1,
			CentreForward:     1,
		},
	},
	Formation352: {
		ID: Formation352,
		Requirements: map[string]int{
			Goalkeeper:        1,
			CentreBack:        3,
			DefensiveMidfield: 2,
			CentralMidfield:   1,
			AttackingMidfield: 2,
			CentreForward:     2,
		},
	},
}

// GetFormation returns a copy of the named formation.
func GetFormation(id string) (Formation, error) {
	formation, ok := formations[id]
	if !ok {
		return Formation{}, fmt.Errorf("%w: %q", ErrUnknownFormation, id)
	}
	return Formation{ID: formation.ID, Requirements: copyRequirements(formation.Requirements)}, nil
}

// Requirements returns a copy of the quotas of the named formation.
func Requirements(id string) (map[string]int, error) {
	formation, err := GetFormation(id)
	if err != nil {
		return nil, err
	}
	return formation.Requirements, nil
}

// Formations lists the catalogue in a stable order.
func Formations() []types.FormationInfo {
	infos := make([]types.FormationInfo, 0, len(formationOrder))
	for _, id := range formationOrder {
		infos = append(infos, types.FormationInfo{
			ID:           id,
			Requirements: copyRequirements(formations[id].Requirements),
		})
	}
	return infos
}

// ValidateFormations checks that every catalogued formation fields exactly SquadSize
// players and only references known categories.
func ValidateFormations() error {
	for _, id := range formationOrder {
		formation := formations[id]
		if size := formation.Size(); size != SquadSize {
			return fmt.Errorf("formation %s fields %d players, want %d", id, size, SquadSize)
		}
		for category, count := range formation.Requirements {
			if !IsKnownPosition(category) {
				return fmt.Errorf("formation %s references unknown category %q", id, category)
			}
			if count <= 0 {
				return fmt.Errorf("formation %s has non-positive quota %d for %s", id, count, category)
			}
		}
	}
	return nil
}

func copyRequirements(requirements map[string]int) map[string]int {
	out := make(map[string]int, len(requirements))
	for category, count := range requirements {
		out[category] = count
	}
	return out
}
