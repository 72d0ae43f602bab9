package engine

import (
	"context"
	"fmt"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
)

// RevealCurrent returns the player whose card is on screen. Local games walk
// the roster one device holder at a time; online each client sees only itself.
func (m *Machine) RevealCurrent() (models.Player, error) {
	if err := m.require(models.StatusRevealing); err != nil {
		return models.Player{}, err
	}
	if m.state.Online() {
		me, ok := m.state.Me()
		if !ok {
			return models.Player{}, fmt.Errorf("%w: not seated in this room", ErrUnknownPlayer)
		}
		return me, nil
	}
	if m.state.RevealIndex >= len(m.state.Players) {
		return models.Player{}, fmt.Errorf("%w: everyone has seen their card", ErrWrongState)
	}
	return m.state.Players[m.state.RevealIndex], nil
}

// ConfirmReveal hides the current card. After the last local player, or on
// any online client, the round begins; the online host also moves the room.
func (m *Machine) ConfirmReveal(ctx context.Context) error {
	if err := m.require(models.StatusRevealing); err != nil {
		return err
	}
	if !m.state.Online() {
		m.state.RevealIndex++
		if m.state.RevealIndex < len(m.state.Players) {
			return nil
		}
		return m.enterPlaying()
	}
	if m.state.IsHost && m.online() {
		status := models.RoomPlaying
		if _, err := m.rooms.UpdateRoom(ctx, m.state.RoomID, models.RoomUpdate{Status: &status}); err != nil {
			return connErr(err)
		}
	}
	return m.enterPlaying()
}

func (m *Machine) enterPlaying() error {
	if err := m.transition(models.StatusPlaying); err != nil {
		return err
	}
	m.state.TurnIndex = 0
	if n := len(m.state.ChatHistory); n > 0 {
		if next, ok := game.TurnAfter(m.state.Players, m.state.ChatHistory[n-1].PlayerID); ok {
			m.state.TurnIndex = next
		}
	}
	m.state.Countdown.Start(m.now(), m.state.Settings.RoundTime)
	return nil
}

// SendChat speaks for the current turn. Local games append at once and pass
// the turn. Online the message goes through the room store and the turn only
// moves when the stored message comes back.
func (m *Machine) SendChat(ctx context.Context, text string) error {
	if err := m.require(models.StatusPlaying); err != nil {
		return err
	}
	text = game.CleanChat(text)
	if text == "" {
		return ErrEmptyMessage
	}

	if !m.state.Online() {
		sp, ok := m.state.Speaker()
		if !ok {
			return fmt.Errorf("%w: nobody holds the turn", ErrWrongState)
		}
		m.state.ChatHistory = append(m.state.ChatHistory, models.ChatMessage{
			ID:         m.newID(),
			PlayerID:   sp.ID,
			PlayerName: sp.Name,
			Text:       text,
			Timestamp:  m.now().UnixMilli(),
		})
		m.state.TurnIndex = game.NextTurn(m.state.TurnIndex, len(m.state.Players))
		return nil
	}

	if !m.state.MyTurn() {
		return ErrNotYourTurn
	}
	me, _ := m.state.Me()
	if _, err := m.rooms.SendChatMessage(ctx, m.state.RoomID, me.ID, me.Name, text); err != nil {
		return connErr(err)
	}
	return nil
}

// appendChat records a stored message once and hands the turn to whoever
// follows its sender
func (m *Machine) appendChat(msg models.ChatMessage) {
	if msg.ID != "" {
		if m.seenChats[msg.ID] {
			return
		}
		m.seenChats[msg.ID] = true
	}
	m.state.ChatHistory = append(m.state.ChatHistory, msg)
	if next, ok := game.TurnAfter(m.state.Players, msg.PlayerID); ok {
		m.state.TurnIndex = next
	}
}

// Tick ends the round once the countdown runs out. Callers drive it from a
// ticker; it is a no-op outside Playing.
func (m *Machine) Tick(ctx context.Context) error {
	if m.state.Status != models.StatusPlaying || !m.state.Countdown.Expired(m.now()) {
		return nil
	}
	return m.EndRound(ctx)
}

// EndRound moves from Playing to Voting. Calling it again, or after the room
// has already moved on, does nothing.
func (m *Machine) EndRound(ctx context.Context) error {
	if m.state.Status != models.StatusPlaying {
		return nil
	}
	m.state.Countdown.Stop()
	if m.state.IsHost && m.online() {
		status := models.RoomVoting
		if _, err := m.rooms.UpdateRoom(ctx, m.state.RoomID, models.RoomUpdate{Status: &status}); err != nil {
			m.log.Error("could not move room to voting", "room_id", m.state.RoomID, "error", err)
		}
	}
	return m.transition(models.StatusVoting)
}

// Vote accuses a player and shows the results. Signed-in players get the
// round recorded against their stats.
func (m *Machine) Vote(ctx context.Context, playerID string) error {
	if err := m.require(models.StatusVoting); err != nil {
		return err
	}
	i := models.IndexOfPlayer(m.state.Players, playerID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPlayer, playerID)
	}
	accused := m.state.Players[i]

	if m.online() {
		if err := m.rooms.SubmitVote(ctx, m.state.RoomID, m.state.MyPlayerID, accused.ID); err != nil {
			m.log.Error("could not submit vote", "room_id", m.state.RoomID, "error", err)
		}
	}

	m.showResults(accused)
	if err := m.transition(models.StatusResults); err != nil {
		return err
	}
	m.recordResult(ctx)

	if m.state.IsHost && m.online() {
		status := models.RoomResults
		id := accused.ID
		if _, err := m.rooms.UpdateRoom(ctx, m.state.RoomID, models.RoomUpdate{Status: &status, AccusedID: &id}); err != nil {
			m.log.Error("could not publish results", "room_id", m.state.RoomID, "error", err)
		}
	}
	return nil
}

func (m *Machine) showResults(accused models.Player) {
	out := game.Resolve(accused)
	m.state.VotedPlayer = &accused
	m.state.Outcome = &out
}

// recordResult updates the signed-in user's wins or losses. Guests and users
// without a seat in this game are skipped.
func (m *Machine) recordResult(ctx context.Context) {
	if m.state.User == nil || m.accounts == nil || m.state.Outcome == nil {
		return
	}
	me, ok := game.FindMe(m.state.Players, *m.state.User, m.state.Settings.Mode)
	if !ok {
		m.log.Debug("no seat for signed-in user, stats unchanged")
		return
	}
	won := m.state.Outcome.Won(me.IsImposter)
	u, err := m.accounts.RecordResult(ctx, m.session(), won)
	if err != nil {
		m.log.Error("could not record result", "user_id", m.state.User.ID, "won", won, "error", err)
		return
	}
	m.saveUser(u)
}
