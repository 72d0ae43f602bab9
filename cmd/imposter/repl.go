package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aaronzipp/imposter/internal/engine"
	"github.com/aaronzipp/imposter/internal/game"
	"github.com/aaronzipp/imposter/internal/models"
	"github.com/aaronzipp/imposter/internal/render"
)

var errUsage = errors.New("bad arguments")

type app struct {
	m         *engine.Machine
	out       io.Writer
	now       func() time.Time
	publicURL string
}

// loop is the only goroutine that touches the machine. It reacts to typed
// lines, realtime events and the round clock until input ends or ctx is done.
func (a *app) loop(ctx context.Context, lines <-chan string, tick <-chan time.Time) error {
	if a.m.Restore() {
		fmt.Fprintln(a.out, "Welcome back.")
	}
	a.draw()

	for {
		select {
		case <-ctx.Done():
			a.leave(context.Background())
			return nil

		case line, ok := <-lines:
			if !ok {
				a.leave(ctx)
				return nil
			}
			quit, err := a.exec(ctx, line)
			if err != nil {
				fmt.Fprintln(a.out, "error:", err)
			}
			if quit {
				a.leave(ctx)
				return nil
			}
			if err == nil {
				a.draw()
			}

		case ev := <-a.m.Events():
			before := a.m.State()
			if err := a.m.HandleEvent(ctx, ev); err != nil {
				fmt.Fprintln(a.out, "error:", err)
			}
			if changed(before, a.m.State()) {
				a.draw()
			}

		case <-tick:
			before := a.m.Status()
			if err := a.m.Tick(ctx); err != nil {
				fmt.Fprintln(a.out, "error:", err)
			}
			if a.m.Status() != before {
				fmt.Fprintln(a.out, "Time is up!")
				a.draw()
			}
		}
	}
}

// changed reports whether an event altered anything on screen
func changed(before, after engine.State) bool {
	return before.Status != after.Status ||
		len(before.Players) != len(after.Players) ||
		len(before.ChatHistory) != len(after.ChatHistory) ||
		before.Notice != after.Notice ||
		(before.Outcome == nil) != (after.Outcome == nil)
}

func (a *app) draw() {
	st := a.m.State()
	fmt.Fprint(a.out, "\n", render.Screen(st, a.now()), render.Help(st.Status))
}

// leave gives up any room before exiting
func (a *app) leave(ctx context.Context) {
	if a.m.Status().InGame() {
		if err := a.m.Reset(ctx); err != nil {
			fmt.Fprintln(a.out, "error leaving room:", err)
		}
	}
}

// exec runs one command line and reports whether the player asked to quit
func (a *app) exec(ctx context.Context, line string) (bool, error) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprint(a.out, render.Help(a.m.Status()))
		return false, nil

	case "guest":
		return false, a.m.ContinueAsGuest()
	case "login":
		if len(args) != 2 {
			return false, errUsage
		}
		return false, a.m.Login(ctx, args[0], args[1])
	case "signup":
		if len(args) != 3 {
			return false, errUsage
		}
		return false, a.m.Signup(ctx, args[0], args[1], args[2])
	case "logout":
		return false, a.m.Logout()

	case "profile":
		return false, a.m.OpenProfile(ctx)
	case "search":
		found, err := a.m.SearchUsers(ctx, rest)
		if err == nil {
			fmt.Fprint(a.out, render.Friends(found))
		}
		return false, err
	case "friend":
		if len(args) != 1 {
			return false, errUsage
		}
		return false, a.m.AddFriend(ctx, args[0])

	case "local":
		s, err := localSettings(args)
		if err != nil {
			return false, err
		}
		return false, a.m.StartSetup(ctx, s)
	case "host":
		s, err := hostSettings(args)
		if err != nil {
			return false, err
		}
		if err := a.m.StartSetup(ctx, s); err != nil {
			return false, err
		}
		a.showJoinLink()
		return false, nil
	case "join":
		s, err := joinSettings(args)
		if err != nil {
			return false, err
		}
		return false, a.m.StartSetup(ctx, s)

	case "pick":
		if len(args) != 1 {
			return false, errUsage
		}
		return false, a.m.SelectCategory(ctx, args[0])
	case "back":
		switch a.m.Status() {
		case models.StatusProfile:
			return false, a.m.CloseProfile()
		default:
			return false, a.m.Cancel(ctx)
		}
	case "leave", "again":
		return false, a.m.Reset(ctx)

	case "show":
		p, err := a.m.RevealCurrent()
		if err == nil {
			fmt.Fprint(a.out, render.RoleCard(p))
		}
		return false, err
	case "next":
		return false, a.m.ConfirmReveal(ctx)

	case "say":
		return false, a.m.SendChat(ctx, rest)
	case "end":
		return false, a.m.EndRound(ctx)
	case "mute":
		if a.m.ToggleMute() {
			fmt.Fprintln(a.out, "mic muted")
		} else {
			fmt.Fprintln(a.out, "mic live")
		}
		return false, nil

	case "vote":
		if len(args) != 1 {
			return false, errUsage
		}
		n, err := strconv.Atoi(args[0])
		players := a.m.State().Players
		if err != nil || n < 1 || n > len(players) {
			return false, fmt.Errorf("%w: pick a number from the list", errUsage)
		}
		return false, a.m.Vote(ctx, players[n-1].ID)
	}
	return false, fmt.Errorf("unknown command %q, try help", cmd)
}

func (a *app) showJoinLink() {
	st := a.m.State()
	link, err := game.JoinLink(a.publicURL, st.RoomCode)
	if err != nil {
		return
	}
	fmt.Fprintf(a.out, "Room %s - share %s\n", st.RoomCode, link)
	if qr, err := game.JoinQRText(link); err == nil {
		fmt.Fprint(a.out, qr)
	}
}

var optionKeys = map[string]bool{"min": true, "name": true, "code": true}

// options splits key=value arguments from positional ones. Only known keys
// count, so a pasted join link stays positional.
func options(args []string) (map[string]string, []string) {
	opts := make(map[string]string)
	var pos []string
	for _, a := range args {
		if k, v, ok := strings.Cut(a, "="); ok && optionKeys[strings.ToLower(k)] {
			opts[strings.ToLower(k)] = v
			continue
		}
		pos = append(pos, a)
	}
	return opts, pos
}

func minutes(opts map[string]string) (int, error) {
	v, ok := opts["min"]
	if !ok {
		return game.DefaultRoundMinutes, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: min must be a positive number", errUsage)
	}
	return n, nil
}

func localSettings(args []string) (models.GameSettings, error) {
	opts, pos := options(args)
	if len(pos) < 2 {
		return models.GameSettings{}, fmt.Errorf("%w: local <players> <imposters> [min=N] [names...]", errUsage)
	}
	players, err1 := strconv.Atoi(pos[0])
	imposters, err2 := strconv.Atoi(pos[1])
	if err1 != nil || err2 != nil {
		return models.GameSettings{}, fmt.Errorf("%w: players and imposters are numbers", errUsage)
	}
	mins, err := minutes(opts)
	if err != nil {
		return models.GameSettings{}, err
	}
	return models.GameSettings{
		Mode:          models.ModeLocal,
		PlayerCount:   players,
		ImposterCount: imposters,
		RoundTime:     mins,
		PlayerNames:   pos[2:],
	}, nil
}

func hostSettings(args []string) (models.GameSettings, error) {
	opts, pos := options(args)
	if len(pos) != 1 {
		return models.GameSettings{}, fmt.Errorf("%w: host <imposters> [min=N] [name=X] [code=XXXX]", errUsage)
	}
	imposters, err := strconv.Atoi(pos[0])
	if err != nil {
		return models.GameSettings{}, fmt.Errorf("%w: imposters is a number", errUsage)
	}
	mins, err := minutes(opts)
	if err != nil {
		return models.GameSettings{}, err
	}
	s := models.GameSettings{
		Mode:          models.ModeOnline,
		IsHost:        true,
		ImposterCount: imposters,
		RoundTime:     mins,
		RoomCode:      opts["code"],
	}
	if n := opts["name"]; n != "" {
		s.PlayerNames = []string{n}
	}
	return s, nil
}

func joinSettings(args []string) (models.GameSettings, error) {
	opts, pos := options(args)
	s := models.GameSettings{Mode: models.ModeOnline, ImposterCount: 1}
	if len(pos) > 0 {
		s.RoomCode = pos[0]
		if code, ok := game.RoomCodeFromLink(pos[0]); ok {
			s.RoomCode = code
		}
	}
	if n := opts["name"]; n != "" {
		s.PlayerNames = []string{n}
	}
	return s, nil
}
