package backend

import (
	"math"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/schoolwear/internal/domain"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
)

// schoolClaim is the token claim carrying the user's school.
const schoolClaim = "escola_id"

// ResolveSchoolID returns the school an order is placed for. The profile's
// school id is canonical; the only fallback is the school claim of the
// session token, read without verifying the signature (the backend verifies
// it on every call). Anything else is a contract error.
func ResolveSchoolID(profile *domain.Profile, token string) (int64, error) {
	if profile != nil && profile.SchoolID > 0 {
		return profile.SchoolID, nil
	}
	if id, ok := schoolIDFromToken(token); ok {
		return id, nil
	}
	return 0, apperrors.InvalidInput("school not resolvable: the profile has no escola_id and the session token carries none")
}

func schoolIDFromToken(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}

	switch v := claims[schoolClaim].(type) {
	case float64:
		if v > 0 && v == math.Trunc(v) && v < 1<<63 {
			return int64(v), true
		}
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}
