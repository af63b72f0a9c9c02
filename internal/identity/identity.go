// Package identity maps login credentials to actors and carries the
// resolved actor between requests in a signed session token.
//
// Credentials are unverified identity claims: anyone typing an
// organization code acts as that organization.
package identity

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/Shivanand-hulikatti/activity-signup/internal/store"
	"github.com/golang-jwt/jwt/v4"
)

var (
	orgCodePattern = regexp.MustCompile(`^ORG-[A-Z0-9]{3}$`)
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid session token")

// Resolver turns a login credential into an Actor.
type Resolver struct {
	emailDomain string
}

// NewResolver constructs a Resolver. A non-empty emailDomain restricts
// participant emails to that domain.
func NewResolver(emailDomain string) *Resolver {
	return &Resolver{emailDomain: strings.ToLower(strings.TrimSpace(emailDomain))}
}

// Login resolves an organization code (ORG- plus three letters or digits,
// case-insensitive) or a participant email.
func (r *Resolver) Login(credential string) (model.Actor, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return model.Actor{}, store.NewValidationError("credential", store.CodeRequired,
			"credential is required")
	}

	if strings.Contains(credential, "@") {
		email := strings.ToLower(credential)
		if !emailPattern.MatchString(email) {
			return model.Actor{}, store.NewValidationError("credential", store.CodeInvalidFormat,
				"credential is not a valid email address")
		}
		if r.emailDomain != "" && !strings.HasSuffix(email, "@"+r.emailDomain) {
			return model.Actor{}, store.NewValidationError("credential", store.CodeInvalidFormat,
				fmt.Sprintf("only @%s addresses are accepted", r.emailDomain))
		}
		return model.Actor{Role: model.RoleParticipant, Identifier: email}, nil
	}

	code := strings.ToUpper(credential)
	if !orgCodePattern.MatchString(code) {
		return model.Actor{}, store.NewValidationError("credential", store.CodeInvalidFormat,
			"organization code must look like ORG-XXX")
	}
	return model.Actor{Role: model.RoleOrganization, Identifier: code}, nil
}

type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens issues and parses HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens constructs a Tokens signer.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token carrying actor.
func (t *Tokens) Issue(actor model.Actor) (string, error) {
	now := t.now()
	c := claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.Identifier,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the actor it carries.
func (t *Tokens) Parse(token string) (model.Actor, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	switch c.Role {
	case model.RoleOrganization, model.RoleParticipant:
	default:
		return model.Actor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, c.Role)
	}
	if c.Subject == "" {
		return model.Actor{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return model.Actor{Role: c.Role, Identifier: c.Subject}, nil
}
