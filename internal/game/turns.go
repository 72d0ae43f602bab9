package game

import (
	"strings"

	"github.com/aaronzipp/imposter/internal/models"
)

// NextTurn advances a round-robin turn index by one
func NextTurn(index, players int) int {
	if players <= 0 {
		return 0
	}
	return (index + 1) % players
}

// TurnAfter returns the index that follows the sender's seat, or false if the sender is not seated
func TurnAfter(players []models.Player, senderID string) (int, bool) {
	i := models.IndexOfPlayer(players, senderID)
	if i < 0 {
		return 0, false
	}
	return NextTurn(i, len(players)), true
}

// Speaker returns the player holding the turn
func Speaker(players []models.Player, index int) (models.Player, bool) {
	if index < 0 || index >= len(players) {
		return models.Player{}, false
	}
	return players[index], true
}

// CleanChat trims and upper-cases a chat line; empty input yields ""
func CleanChat(text string) string {
	return strings.ToUpper(strings.TrimSpace(text))
}
