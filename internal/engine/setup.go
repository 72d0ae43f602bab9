package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/store"
)

// StartSetup leaves the lobby for a new game. Local games go straight to
// category select. Online hosts create a room first; joiners look the room up
// and wait for the host.
func (m *Machine) StartSetup(ctx context.Context, s models.GameSettings) error {
	if err := m.require(models.StatusLobby); err != nil {
		return err
	}
	s.PlayerNames = slices.Clone(s.PlayerNames)
	if s.RoundTime <= 0 {
		s.RoundTime = game.DefaultRoundMinutes
	}

	if s.Mode != models.ModeOnline {
		s.Mode = models.ModeLocal
		if s.PlayerCount < game.MinPlayers || s.PlayerCount > game.MaxPlayers ||
			s.ImposterCount < 1 || s.ImposterCount > s.PlayerCount-1 {
			return ErrInvalidSettings
		}
		m.state.Settings = s
		m.state.Players = game.LocalRoster(s.PlayerCount, s.PlayerNames)
		m.state.Notice = ""
		return m.transition(models.StatusCategorySelect)
	}

	if m.rooms == nil || m.bridge == nil {
		return fmt.Errorf("%w: online play is not configured", ErrConnection)
	}
	if s.ImposterCount < 1 {
		return ErrInvalidSettings
	}
	if !s.IsHost && strings.TrimSpace(s.RoomCode) == "" {
		return ErrMissingRoomCode
	}

	me := models.Player{ID: m.playerID(), Name: m.displayName(s)}
	if m.state.User != nil {
		me.UserID = m.state.User.ID
	}
	m.state.Notice = ""
	if s.IsHost {
		return m.hostRoom(ctx, s, me)
	}
	return m.joinRoom(ctx, s, me)
}

// playerID keeps one online identity for the whole client session
func (m *Machine) playerID() string {
	if m.state.MyPlayerID == "" {
		m.state.MyPlayerID = "player_" + m.newID()
	}
	return m.state.MyPlayerID
}

func (m *Machine) displayName(s models.GameSettings) string {
	if len(s.PlayerNames) > 0 {
		if n := strings.TrimSpace(s.PlayerNames[0]); n != "" {
			return n
		}
	}
	if m.state.User != nil && m.state.User.Username != "" {
		return m.state.User.Username
	}
	return game.GuestName
}

func (m *Machine) hostRoom(ctx context.Context, s models.GameSettings, me models.Player) error {
	settings := models.RoomSettings{ImposterCount: s.ImposterCount, RoundTime: s.RoundTime}

	var (
		code   string
		roomID string
		err    error
	)
	if strings.TrimSpace(s.RoomCode) != "" {
		code = game.NormalizeRoomCode(s.RoomCode)
		roomID, err = m.rooms.CreateRoom(ctx, code, me.ID, me.Name, settings)
		if errors.Is(err, store.ErrConflict) {
			m.log.Info("room code taken, generating another", "code", code)
			code = ""
		} else if err != nil {
			return connErr(err)
		}
	}
	if code == "" {
		code, err = m.rooms.GenerateUniqueRoomCode(ctx)
		if errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("%w: %w", ErrCodeUnavailable, err)
		}
		if err != nil {
			return connErr(err)
		}
		if roomID, err = m.rooms.CreateRoom(ctx, code, me.ID, me.Name, settings); err != nil {
			return connErr(err)
		}
	}

	if err := m.bridge.Start(ctx, roomID); err != nil {
		m.abandonRoom(ctx, roomID, true)
		return connErr(err)
	}
	if err := m.rooms.AddPlayerToRoom(ctx, roomID, me, true); err != nil {
		m.bridge.Stop()
		m.abandonRoom(ctx, roomID, true)
		return connErr(err)
	}

	m.state.Settings = s
	m.state.Settings.RoomCode = code
	m.state.RoomID = roomID
	m.state.RoomCode = code
	m.state.IsHost = true
	m.state.Players = []models.Player{me}
	m.startVoice(ctx)
	m.log.Info("hosting room", "room_id", roomID, "code", code)
	return m.transition(models.StatusCategorySelect)
}

func (m *Machine) joinRoom(ctx context.Context, s models.GameSettings, me models.Player) error {
	code := game.NormalizeRoomCode(s.RoomCode)
	room, err := m.rooms.GetRoomByCode(ctx, code)
	if err != nil {
		return connErr(err)
	}
	if !room.Status.Joinable() {
		return ErrGameInProgress
	}

	if err := m.bridge.Start(ctx, room.ID); err != nil {
		return connErr(err)
	}
	if err := m.rooms.AddPlayerToRoom(ctx, room.ID, me, false); err != nil {
		m.bridge.Stop()
		return connErr(err)
	}

	s.ImposterCount = room.Settings.ImposterCount
	s.RoundTime = room.Settings.RoundTime
	s.RoomCode = room.Code
	m.state.Settings = s
	m.state.RoomID = room.ID
	m.state.RoomCode = room.Code
	m.state.IsHost = false
	m.state.Players = room.Players
	if models.IndexOfPlayer(m.state.Players, me.ID) < 0 {
		m.state.Players = append(m.state.Players, me)
	}
	if room.Category != nil {
		c := *room.Category
		m.state.Category = &c
	}
	m.startVoice(ctx)
	m.log.Info("joined room", "room_id", room.ID, "code", room.Code)
	return m.transition(models.StatusWaitingForHost)
}

// abandonRoom deletes a room the host could not finish setting up
func (m *Machine) abandonRoom(ctx context.Context, roomID string, host bool) {
	if !host {
		return
	}
	if err := m.rooms.DeleteRoom(ctx, roomID); err != nil {
		m.log.Warn("could not delete abandoned room", "room_id", roomID, "error", err)
	}
}

// SelectCategory picks the theme, deals roles and starts revealing. Online,
// only the host does this: it deals over the room's current roster and
// publishes everything with the revealing status in one update.
func (m *Machine) SelectCategory(ctx context.Context, categoryID string) error {
	if err := m.require(models.StatusCategorySelect); err != nil {
		return err
	}
	cat, ok := game.CategoryByID(categoryID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, categoryID)
	}

	if m.online() {
		room, err := m.rooms.GetRoomByID(ctx, m.state.RoomID)
		if err != nil {
			return connErr(err)
		}
		if len(room.Players) < game.MinPlayers {
			return fmt.Errorf("%w: %d of %d", ErrNotEnoughPlayers, len(room.Players), game.MinPlayers)
		}

		pair, ok := game.PickWordPair(ctx, m.rng, cat, m.words)
		if !ok {
			return fmt.Errorf("%w: %q has no words", ErrUnknownCategory, categoryID)
		}
		dealt := game.AssignRoles(m.rng, room.Players, m.state.Settings.ImposterCount, pair)
		status := models.RoomRevealing
		if _, err := m.rooms.UpdateRoom(ctx, m.state.RoomID, models.RoomUpdate{
			Status:   &status,
			Category: &cat,
			WordPair: &pair,
			Players:  &dealt,
		}); err != nil {
			return connErr(err)
		}
		m.deal(cat, pair, dealt)
		return m.transition(models.StatusRevealing)
	}

	pair, ok := game.PickWordPair(ctx, m.rng, cat, m.words)
	if !ok {
		return fmt.Errorf("%w: %q has no words", ErrUnknownCategory, categoryID)
	}
	m.deal(cat, pair, game.AssignRoles(m.rng, m.state.Players, m.state.Settings.ImposterCount, pair))
	return m.transition(models.StatusRevealing)
}

func (m *Machine) deal(cat models.Category, pair models.WordPair, players []models.Player) {
	m.state.Category = &cat
	m.state.WordPair = &pair
	m.state.Players = players
	m.state.RevealIndex = 0
}
