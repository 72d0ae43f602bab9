package models

// Friend is a reference to another user
type Friend struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// User is a player account with cumulative stats
type User struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Wins     int      `json:"wins"`
	Losses   int      `json:"losses"`
	Friends  []Friend `json:"friends"`
}

// WinRate returns wins as a rounded percentage of games played
func (u User) WinRate() int {
	total := u.Wins + u.Losses
	if total == 0 {
		return 0
	}
	return (u.Wins*100 + total/2) / total
}

// HasFriend reports whether id is already in the friend list
func (u User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f.ID == id {
			return true
		}
	}
	return false
}

// Session is a signed-in user together with the token the backend issued
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
