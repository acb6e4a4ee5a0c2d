package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var claimsParser = jwt.NewParser()

// ExpiryFromToken reads the exp claim from the payload segment of a JWT. The
// header and signature are not inspected, so tokens signed with algorithms
// this process does not know still decode. Any malformed input yields
// ok == false.
func ExpiryFromToken(token string) (expiry time.Time, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	payload, err := claimsParser.DecodeSegment(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
