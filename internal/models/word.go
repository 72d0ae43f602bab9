package models

// WordPair is the secret word and its look-alike.
// Decoy is generated alongside Target but imposters never see it.
type WordPair struct {
	Target string `json:"target"`
	Decoy  string `json:"decoy"`
}

// Category is a theme players pick before roles are dealt
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Description string `json:"description"`
}
