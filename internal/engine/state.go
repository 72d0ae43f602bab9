package engine

import (
	"slices"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
)

// State is everything one client knows about its session and current game.
// Only the Machine mutates it; callers get copies.
type State struct {
	Status models.GameStatus

	// User is nil for guests
	User  *models.User
	Token string

	Settings models.GameSettings
	Category *models.Category
	WordPair *models.WordPair
	Players  []models.Player

	RevealIndex int
	TurnIndex   int
	ChatHistory []models.ChatMessage
	Countdown   game.Countdown

	VotedPlayer *models.Player
	Outcome     *game.Outcome

	RoomID     string
	RoomCode   string
	IsHost     bool
	MyPlayerID string

	Muted bool

	// Notice is the last message for the player that did not come from their own action
	Notice string
}

// Online reports whether the current game is networked
func (s State) Online() bool {
	return s.Settings.Mode == models.ModeOnline
}

// Me returns this client's player in an online game
func (s State) Me() (models.Player, bool) {
	i := models.IndexOfPlayer(s.Players, s.MyPlayerID)
	if i < 0 {
		return models.Player{}, false
	}
	return s.Players[i], true
}

// Speaker returns the player holding the turn
func (s State) Speaker() (models.Player, bool) {
	return game.Speaker(s.Players, s.TurnIndex)
}

// MyTurn reports whether this client may send chat now. Local games pass one
// device around, so it is always the device's turn.
func (s State) MyTurn() bool {
	if !s.Online() {
		return true
	}
	sp, ok := s.Speaker()
	return ok && sp.ID == s.MyPlayerID
}

// clone copies s deeply enough that the caller cannot reach Machine state
func (s State) clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.ChatHistory = slices.Clone(s.ChatHistory)
	c.Settings.PlayerNames = slices.Clone(s.Settings.PlayerNames)
	if s.User != nil {
		u := *s.User
		u.Friends = slices.Clone(s.User.Friends)
		c.User = &u
	}
	if s.Category != nil {
		v := *s.Category
		c.Category = &v
	}
	if s.WordPair != nil {
		v := *s.WordPair
		c.WordPair = &v
	}
	if s.VotedPlayer != nil {
		v := *s.VotedPlayer
		c.VotedPlayer = &v
	}
	if s.Outcome != nil {
		v := *s.Outcome
		c.Outcome = &v
	}
	return c
}
