package game

import "github.com/aaronzipp/imposter/internal/models"

// Side is a team in a round
type Side string

const (
	SideCivilians Side = "civilians"
	SideImposters Side = "imposters"
)

// Outcome is the result of a single accusation
type Outcome struct {
	Accused        models.Player
	ImposterCaught bool
	Winner         Side
}

// Resolve scores a round: catching an imposter wins it for the civilians
func Resolve(accused models.Player) Outcome {
	o := Outcome{Accused: accused, ImposterCaught: accused.IsImposter}
	if o.ImposterCaught {
		o.Winner = SideCivilians
	} else {
		o.Winner = SideImposters
	}
	return o
}

// Won reports whether a player on the given side won
func (o Outcome) Won(amImposter bool) bool {
	if amImposter {
		return o.Winner == SideImposters
	}
	return o.Winner == SideCivilians
}

// FindMe locates the acting user's seat: by account id, or by name in local games
func FindMe(players []models.Player, user models.User, mode models.GameMode) (models.Player, bool) {
	for _, p := range players {
		if p.UserID != "" && p.UserID == user.ID {
			return p, true
		}
		if mode == models.ModeLocal && p.Name == user.Username {
			return p, true
		}
	}
	return models.Player{}, false
}
