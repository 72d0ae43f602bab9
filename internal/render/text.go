// Package render draws game state as plain text for the terminal client.
package render

import (
	"strconv"
	"strings"
	"time"

	"github.com/aaronzipp/imposter/internal/engine"
	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
)

// Screen renders everything the player should see in the current status
func Screen(st engine.State, now time.Time) string {
	var b strings.Builder
	if st.Notice != "" {
		b.WriteString("! ")
		b.WriteString(st.Notice)
		b.WriteString("\n\n")
	}

	switch st.Status {
	case models.StatusAuth:
		b.WriteString("== IMPOSTER ==\nSign in, sign up or play as a guest.\n")
	case models.StatusLobby:
		b.WriteString("== LOBBY ==\n")
		if st.User != nil {
			b.WriteString("Agent ")
			b.WriteString(st.User.Username)
			b.WriteString(" | ")
			b.WriteString(Stats(*st.User))
			b.WriteByte('\n')
		} else {
			b.WriteString("Playing as ")
			b.WriteString(game.GuestName)
			b.WriteByte('\n')
		}
	case models.StatusProfile:
		if st.User != nil {
			b.WriteString(Profile(*st.User))
		}
	case models.StatusCategorySelect:
		b.WriteString(roomLine(st))
		b.WriteString(PlayerList(st.Players, -1, st.MyPlayerID))
		b.WriteString(Categories())
	case models.StatusWaitingForHost:
		b.WriteString(roomLine(st))
		b.WriteString(PlayerList(st.Players, -1, st.MyPlayerID))
		b.WriteString("Waiting for the host to pick a category...\n")
	case models.StatusRevealing:
		b.WriteString(revealing(st))
	case models.StatusPlaying:
		b.WriteString(Timer(st.Countdown, now))
		b.WriteString(PlayerList(st.Players, st.TurnIndex, st.MyPlayerID))
		b.WriteString(Chat(st.ChatHistory))
		if sp, ok := st.Speaker(); ok {
			b.WriteString("Turn: ")
			b.WriteString(sp.Name)
			if st.Online() && st.MyTurn() {
				b.WriteString(" (you)")
			}
			b.WriteByte('\n')
		}
	case models.StatusVoting:
		b.WriteString("== VOTE ==\nWho is the imposter?\n")
		b.WriteString(Ballot(st.Players))
	case models.StatusResults:
		b.WriteString(Results(st))
	}
	return b.String()
}

func roomLine(st engine.State) string {
	if !st.Online() {
		return "== LOCAL GAME ==\n"
	}
	var b strings.Builder
	b.WriteString("== ROOM ")
	b.WriteString(st.RoomCode)
	b.WriteString(" ==")
	if st.IsHost {
		b.WriteString(" (host)")
	}
	b.WriteByte('\n')
	return b.String()
}

func revealing(st engine.State) string {
	var b strings.Builder
	b.WriteString("== ROLES ==\n")
	if st.Category != nil {
		b.WriteString("Category: ")
		b.WriteString(st.Category.Emoji)
		b.WriteByte(' ')
		b.WriteString(st.Category.Name)
		b.WriteByte('\n')
	}
	if st.Online() {
		b.WriteString("Type 'show' to see your card, then 'next'.\n")
		return b.String()
	}
	if st.RevealIndex < len(st.Players) {
		b.WriteString("Pass the device to ")
		b.WriteString(st.Players[st.RevealIndex].Name)
		b.WriteString(" (")
		b.WriteString(strconv.Itoa(st.RevealIndex + 1))
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(len(st.Players)))
		b.WriteString("). Type 'show', then 'next'.\n")
	}
	return b.String()
}

// RoleCard shows one player their secret
func RoleCard(p models.Player) string {
	var b strings.Builder
	b.WriteString("+------------------------------+\n| ")
	b.WriteString(p.Name)
	b.WriteString("\n| ")
	if p.IsImposter {
		b.WriteString(game.ImposterWord)
		b.WriteString("\n| Blend in. Nobody told you the word.")
	} else {
		b.WriteString("Secret word: ")
		b.WriteString(p.Word)
	}
	b.WriteString("\n+------------------------------+\n")
	return b.String()
}

// PlayerList numbers the roster. turn marks the speaker; -1 marks nobody.
func PlayerList(players []models.Player, turn int, myID string) string {
	var b strings.Builder
	b.WriteString("Players (")
	b.WriteString(strconv.Itoa(len(players)))
	b.WriteString("):\n")
	for i, p := range players {
		if i == turn {
			b.WriteString(" > ")
		} else {
			b.WriteString("   ")
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(p.Name)
		if myID != "" && p.ID == myID {
			b.WriteString(" (you)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Categories lists the themes with the ids 'pick' takes
func Categories() string {
	var b strings.Builder
	b.WriteString("Categories:\n")
	for _, c := range game.Categories {
		b.WriteString("   ")
		b.WriteString(c.Emoji)
		b.WriteByte(' ')
		b.WriteString(c.ID)
		b.WriteString(" - ")
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(c.Description)
		b.WriteByte('\n')
	}
	return b.String()
}

// Chat prints the history oldest first
func Chat(history []models.ChatMessage) string {
	if len(history) == 0 {
		return "(no clues yet)\n"
	}
	var b strings.Builder
	for _, m := range history {
		b.WriteString("  [")
		b.WriteString(m.PlayerName)
		b.WriteString("] ")
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Timer shows the time left in the round
func Timer(c game.Countdown, now time.Time) string {
	return "Time left: " + game.FormatRemaining(c.Remaining(now)) + "\n"
}

// Ballot numbers the players for 'vote'
func Ballot(players []models.Player) string {
	return PlayerList(players, -1, "")
}

// Results reveals the accused, the word and every imposter
func Results(st engine.State) string {
	var b strings.Builder
	b.WriteString("== RESULTS ==\n")
	if st.Outcome == nil {
		b.WriteString("Waiting for the vote...\n")
		return b.String()
	}
	b.WriteString(st.Outcome.Accused.Name)
	if st.Outcome.ImposterCaught {
		b.WriteString(" WAS the imposter. Civilians win!\n")
	} else {
		b.WriteString(" was NOT the imposter. Imposters win!\n")
	}
	if st.WordPair != nil {
		b.WriteString("The word was: ")
		b.WriteString(st.WordPair.Target)
		b.WriteByte('\n')
	}
	var imposters []string
	for _, p := range st.Players {
		if p.IsImposter {
			imposters = append(imposters, p.Name)
		}
	}
	b.WriteString("Imposters: ")
	b.WriteString(strings.Join(imposters, ", "))
	b.WriteByte('\n')
	return b.String()
}

// Stats is the one-line wins, losses and win rate summary
func Stats(u models.User) string {
	return "W " + strconv.Itoa(u.Wins) + " / L " + strconv.Itoa(u.Losses) + " / " + strconv.Itoa(u.WinRate()) + "%"
}

// Profile shows the user's stats and friends
func Profile(u models.User) string {
	var b strings.Builder
	b.WriteString("== PROFILE ==\n")
	b.WriteString(u.Username)
	b.WriteString(" <")
	b.WriteString(u.Email)
	b.WriteString(">\n")
	b.WriteString(Stats(u))
	b.WriteString("\nFriends (")
	b.WriteString(strconv.Itoa(len(u.Friends)))
	b.WriteString("):\n")
	for _, f := range u.Friends {
		b.WriteString("   ")
		b.WriteString(f.Username)
		b.WriteByte('\n')
	}
	return b.String()
}

// Friends lists search results with the ids 'friend' takes
func Friends(found []models.Friend) string {
	if len(found) == 0 {
		return "No agents found.\n"
	}
	var b strings.Builder
	for _, f := range found {
		b.WriteString("   ")
		b.WriteString(f.Username)
		b.WriteString("  id=")
		b.WriteString(f.ID)
		b.WriteByte('\n')
	}
	return b.String()
}

var help = map[models.GameStatus]string{
	models.StatusAuth:           "login <email> <password> | signup <username> <email> <password> | guest",
	models.StatusLobby:          "local <players> <imposters> [min=N] [names...] | host <imposters> [min=N] [name=X] [code=XXXX] | join <code|link> [name=X] | profile | logout",
	models.StatusProfile:        "search <query> | friend <id> | back | logout",
	models.StatusCategorySelect: "pick <category> | back",
	models.StatusWaitingForHost: "leave",
	models.StatusRevealing:      "show | next",
	models.StatusPlaying:        "say <clue> | end | mute | leave",
	models.StatusVoting:         "vote <number> | leave",
	models.StatusResults:        "again",
}

// Help lists the commands available in status s
func Help(s models.GameStatus) string {
	return "commands: " + help[s] + " | help | quit\n"
}
