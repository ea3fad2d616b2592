package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupOf(t *testing.T) {
	tests := []struct {
		position string
		want     PositionGroup
	}{
		{Goalkeeper, GroupNeutral},
		{RightBack, GroupDefensive},
		{LeftBack, GroupDefensive},
		{CentreBack, GroupDefensive},
		{DefensiveMidfield, GroupDefensive},
		{CentralMidfield, GroupNeutral},
		{AttackingMidfield, GroupAttacking},
		{RightWinger, GroupAttacking},
		{LeftWinger, GroupAttacking},
		{CentreForward, GroupAttacking},
		{"Second Striker", GroupNeutral},
		{"", GroupNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupOf(tt.position))
		})
	}
}

func TestPositions_CoverEveryFormationCategory(t *testing.T) {
	positions := Positions()
	assert.Len(t, positions, 10)
	assert.IsIncreasing(t, positions)

	for _, info := range Formations() {
		for category := range info.Requirements {
			assert.Contains(t, positions, category, "formation %s", info.ID)
		}
	}
}
