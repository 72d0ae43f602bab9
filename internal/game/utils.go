package game

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"net/url"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

// ErrCodeCollision is returned when every attempt produced a code already in use
var ErrCodeCollision = errors.New("room code collision")

// GenerateRoomCode creates a random four digit room code (1000-9999)
func GenerateRoomCode() string {
	n, err := crand.Int(crand.Reader, big.NewInt(9000))
	if err != nil {
		// fallback to math/rand if crypto fails
		return strconv.Itoa(1000 + rand.Intn(9000))
	}
	return strconv.Itoa(1000 + int(n.Int64()))
}

// NormalizeRoomCode drops whitespace, upper-cases the code, left-pads it with
// zeros and keeps the first four characters
func NormalizeRoomCode(code string) string {
	r := []rune(strings.ToUpper(strings.Join(strings.Fields(code), "")))
	if len(r) < RoomCodeLength {
		pad := []rune(strings.Repeat("0", RoomCodeLength-len(r)))
		r = append(pad, r...)
	}
	return string(r[:RoomCodeLength])
}

// GetUniqueRoomCode draws codes until exists reports a free one.
// After RoomCodeAttempts collisions it returns the last code together with ErrCodeCollision.
func GetUniqueRoomCode(generate func() string, exists func(code string) bool) (string, error) {
	var code string
	for range RoomCodeAttempts {
		code = NormalizeRoomCode(generate())
		if !exists(code) {
			return code, nil
		}
	}
	return code, fmt.Errorf("%w after %d attempts", ErrCodeCollision, RoomCodeAttempts)
}

// JoinLink encodes the room code as the room query parameter on base
func JoinLink(base, code string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse join base %q: %w", base, err)
	}
	q := u.Query()
	q.Set("room", NormalizeRoomCode(code))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RoomCodeFromLink extracts the room code from a join link
func RoomCodeFromLink(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	code := u.Query().Get("room")
	if code == "" {
		return "", false
	}
	return NormalizeRoomCode(code), true
}

// JoinQR renders a join link as a PNG QR code
func JoinQR(link string, size int) ([]byte, error) {
	return qrcode.Encode(link, qrcode.Medium, size)
}

// JoinQRText renders a join link as a terminal-friendly QR code
func JoinQRText(link string) (string, error) {
	q, err := qrcode.New(link, qrcode.Low)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
