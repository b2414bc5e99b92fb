package apiclient

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/oauth2"
)

// CredentialProvider supplies the bearer credential for every request.
// It is injected into the client explicitly; the client never looks up
// ambient auth state on its own.
type CredentialProvider = oauth2.TokenSource

// StaticToken returns a provider for a token held in memory, such as one
// forwarded from an incoming request.
func StaticToken(token string) CredentialProvider {
	return &staticToken{raw: strings.TrimSpace(token), now: time.Now}
}

type staticToken struct {
	raw string
	now func() time.Time
}

func (s *staticToken) Token() (*oauth2.Token, error) {
	return bearer(s.raw, s.now())
}

// FileToken returns a provider that reads the persisted token from path on
// every call, so a fresh login is picked up without a restart.
func FileToken(path string) CredentialProvider {
	return &fileToken{path: path, now: time.Now}
}

type fileToken struct {
	path string
	now  func() time.Time
}

func (f *fileToken) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoCredential, f.path)
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	return bearer(strings.TrimSpace(string(data)), f.now())
}

// bearer wraps raw into an oauth2 token. JWTs carry their own expiry;
// opaque tokens (e.g. "12|abc…") are accepted as-is.
func bearer(raw string, now time.Time) (*oauth2.Token, error) {
	if raw == "" {
		return nil, ErrNoCredential
	}
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	if claims, ok := parseClaims(raw); ok && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
		if !now.Before(tok.Expiry) {
			return nil, ErrCredentialExpired
		}
	}
	return tok, nil
}

// parseClaims reads JWT claims without verifying the signature; the backend
// verifies, the client only needs expiry and subject.
func parseClaims(raw string) (*jwt.RegisteredClaims, bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// CandidateKey derives a stable, non-reversible key for the owner of a token.
// JWT subjects are used when present so that token refreshes keep the key.
func CandidateKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if claims, ok := parseClaims(raw); ok && claims.Subject != "" {
		return "sub:" + claims.Subject
	}
	sum := blake2b.Sum256([]byte(raw))
	return "tok:" + hex.EncodeToString(sum[:12])
}
