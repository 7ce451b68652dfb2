package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Identity is the caller resolved from a request credential.
type Identity struct {
	UserID    string
	ProfileID string
}

// OwnerKey is the storage scope for this identity: the profile id when one is
// set, otherwise the user id. Two profiles of the same user never share
// conversations or memory.
func (id Identity) OwnerKey() string {
	if id.ProfileID != "" {
		return id.ProfileID
	}
	return id.UserID
}

var ErrUnauthorized = errors.New("unauthorized")

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// StaticVerifier checks tokens against a fixed table, configured as
// "token:user" or "token:user:profile" entries.
type StaticVerifier struct {
	identities map[string]Identity
}

func NewStaticVerifier(entries []string) (*StaticVerifier, error) {
	identities := make(map[string]Identity, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, errors.New("auth token entry must be token:user or token:user:profile")
		}
		id := Identity{UserID: parts[1]}
		if len(parts) == 3 {
			id.ProfileID = parts[2]
		}
		identities[parts[0]] = id
	}
	if len(identities) == 0 {
		return nil, errors.New("no auth token entries configured")
	}
	return &StaticVerifier{identities: identities}, nil
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (Identity, error) {
	id, ok := v.identities[token]
	if !ok {
		return Identity{}, ErrUnauthorized
	}
	return id, nil
}

// AnonymousVerifier accepts any request and uses the token itself as the user
// id, falling back to a shared anonymous identity. Suitable for local and dev
// deployments without an auth provider.
type AnonymousVerifier struct{}

func (AnonymousVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{UserID: "anonymous"}, nil
	}
	return Identity{UserID: token}, nil
}

// BearerToken extracts the credential from an Authorization header or the
// access_token query parameter (used by websocket clients that cannot set
// headers).
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}
