package identity

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// RoleType identifies the portal role carried in the credential's "role" claim.
type RoleType int

const (
	RoleNone     RoleType = 0
	RoleAdmin    RoleType = 1
	RoleEmployee RoleType = 2
	RoleCustomer RoleType = 3
)

// Identity is the authenticated principal decoded from the bearer credential.
// It is replaced wholesale on every successful refresh and cleared on logout.
type Identity struct {
	Sub                 int64    `json:"sub"`    // User's unique ID
	Name                string   `json:"name"`   // Display name
	Role                RoleType `json:"role"`   // Portal role
	Iat                 int64    `json:"iat"`    // Issued at (epoch seconds)
	Exp                 int64    `json:"exp"`    // Credential expiry (epoch seconds)
	RefExp              int64    `json:"refexp"` // Refresh expiry (epoch seconds)
	ForcePasswordChange bool     `json:"fpc"`    // User must change password before using the portal
}

func (id *Identity) IsAdmin() bool    { return id.Role == RoleAdmin }
func (id *Identity) IsEmployee() bool { return id.Role == RoleEmployee }
func (id *Identity) IsCustomer() bool { return id.Role == RoleCustomer }

// ExpiresAt returns the credential expiry as wall-clock time.
func (id *Identity) ExpiresAt() time.Time {
	return time.Unix(id.Exp, 0)
}

// Decode parses a signed credential into an Identity.
//
// The portal is a consumer of the server's credential, not its verifier: the
// signature is the server's concern, so the token is parsed unverified and
// only its claim shape is validated here. A token missing a numeric exp, or
// violating exp > iat or refexp >= exp, is rejected.
func Decode(rawToken string) (*Identity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.New("[identity.Decode] empty credential")
	}

	token, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(err, "[identity.Decode] ParseUnverified")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("[identity.Decode] error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("[identity.Decode] missing numeric exp claim")
	}

	sub, _ := claims["sub"].(float64)
	name, _ := claims["name"].(string)
	role, _ := claims["role"].(float64)
	iat, _ := claims["iat"].(float64)
	refexp, _ := claims["refexp"].(float64)
	fpc, _ := claims["fpc"].(bool)

	id := &Identity{
		Sub:                 int64(sub),
		Name:                name,
		Role:                RoleType(role),
		Iat:                 int64(iat),
		Exp:                 int64(exp),
		RefExp:              int64(refexp),
		ForcePasswordChange: fpc,
	}

	if id.Exp <= id.Iat {
		return nil, errors.New("[identity.Decode] exp must be after iat")
	}
	if id.RefExp < id.Exp {
		return nil, errors.New("[identity.Decode] refexp must not precede exp")
	}
	return id, nil
}
