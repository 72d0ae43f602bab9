package game

const (
	// MinPlayers is the minimum number of players required to deal roles
	MinPlayers = 3

	// MaxPlayers is the largest local roster the lobby offers
	MaxPlayers = 12

	// ImposterWord is shown to imposters instead of the target word
	ImposterWord = "YOU ARE THE IMPOSTER"

	// RoomCodeLength is the length of a normalized room code
	RoomCodeLength = 4

	// RoomCodeAttempts bounds how many codes are tried before giving up on uniqueness
	RoomCodeAttempts = 10

	// DefaultRoundMinutes is the round length when settings leave it unset
	DefaultRoundMinutes = 5

	// GuestName is the online display name when neither a name nor an account is known
	GuestName = "GUEST AGENT"

	// AICategoryID is the category whose word pair comes from the generator
	AICategoryID = "ai"
)
