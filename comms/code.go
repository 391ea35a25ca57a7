package comms

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrBadCode = errors.New("bad code")

// EncodeConnectString makes the code a client connects with.
func EncodeConnectString(gameID, playerID string) string {
	s := fmt.Sprintf("%s//%s", gameID, playerID)
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// DecodeConnectString reverses EncodeConnectString.
func DecodeConnectString(code string) (gameID, playerID string, err error) {
	s, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return "", "", ErrBadCode
	}
	ss := strings.Split(string(s), "//")
	if len(ss) != 2 || ss[0] == "" || ss[1] == "" {
		return "", "", ErrBadCode
	}
	return ss[0], ss[1], nil
}
