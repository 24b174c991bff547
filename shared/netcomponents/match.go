package netcomponents

import (
	"github.com/automoto/ghostsync/shared/netconfig"
	"github.com/yohamta/donburi"
)

// MatchGhost is the singleton ghost carrying match state and scores.
type MatchGhost struct {
	State  uint8   `ghost:""`
	Timer  float32 `ghost:"quant=100,smooth=interp"` // Remaining time or elapsed
	Scores []Score `ghost:"cap=8"`
}

type Score struct {
	Owner  uint32 `ghost:""`
	Kills  int16  `ghost:""`
	Deaths int16  `ghost:""`
}

func (m *MatchGhost) MatchState() netconfig.MatchStateID {
	return netconfig.MatchStateID(m.State)
}

// ScoreOf returns the score slot of owner, appending one if missing.
func (m *MatchGhost) ScoreOf(owner uint32) *Score {
	for i := range m.Scores {
		if m.Scores[i].Owner == owner {
			return &m.Scores[i]
		}
	}
	m.Scores = append(m.Scores, Score{Owner: owner})
	return &m.Scores[len(m.Scores)-1]
}

var Match = donburi.NewComponentType[MatchGhost]()
