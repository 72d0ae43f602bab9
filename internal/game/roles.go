package game

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/aaronzipp/imposter/internal/models"
)

// EffectiveImposterCount clamps the requested count so at least one player keeps the real word
func EffectiveImposterCount(requested, players int) int {
	k := min(requested, players-1)
	if k < 0 {
		return 0
	}
	return k
}

// PickImposters draws k distinct indices in [0, n) uniformly without replacement
func PickImposters(rng *rand.Rand, n, k int) map[int]bool {
	picked := make(map[int]bool, k)
	for len(picked) < k {
		picked[rng.Intn(n)] = true
	}
	return picked
}

// AssignRoles returns a copy of players with imposter flags and words dealt.
// Imposters get ImposterWord; everyone else gets pair.Target.
func AssignRoles(rng *rand.Rand, players []models.Player, requested int, pair models.WordPair) []models.Player {
	k := EffectiveImposterCount(requested, len(players))
	imposters := PickImposters(rng, len(players), k)

	dealt := make([]models.Player, len(players))
	for i, p := range players {
		p.IsImposter = imposters[i]
		if p.IsImposter {
			p.Word = ImposterWord
		} else {
			p.Word = pair.Target
		}
		dealt[i] = p
	}
	return dealt
}

// LocalRoster builds the pass-the-device roster; blank names become "AGENT n"
func LocalRoster(count int, names []string) []models.Player {
	players := make([]models.Player, count)
	for i := range count {
		players[i] = models.Player{ID: strconv.Itoa(i), Name: DisplayName(names, i)}
	}
	return players
}

// DisplayName returns names[i] or the numbered default
func DisplayName(names []string, i int) string {
	if i < len(names) {
		if n := strings.TrimSpace(names[i]); n != "" {
			return n
		}
	}
	return "AGENT " + strconv.Itoa(i+1)
}

// CountImposters counts players flagged as imposters
func CountImposters(players []models.Player) int {
	n := 0
	for _, p := range players {
		if p.IsImposter {
			n++
		}
	}
	return n
}
