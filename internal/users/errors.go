package users

import "errors"

// Signup errors
var (
	ErrMissingFields  = errors.New("username, email and password are required")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Login errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
)

// Lookup and friend errors
var (
	ErrUserNotFound = errors.New("user not found")
	ErrSelfFriend   = errors.New("cannot add yourself as a friend")
)
