package broker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when the token file does not exist yet and the
// interactive login has to be completed first.
var ErrNoToken = errors.New("no OAuth token")

// storedToken is the token document written by the browser login flow.
type storedToken struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	TokenType             string `json:"token_type,omitempty"`
	ExpiresIn             int64  `json:"expires_in,omitempty"`
	Scope                 string `json:"scope,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in,omitempty"`
	ExpiresAt             int64  `json:"expires_at,omitempty"`
}

// tokenFile is the wrapped layout; older files store storedToken flat.
type tokenFile struct {
	CreationTimestamp int64        `json:"creation_timestamp,omitempty"`
	Token             *storedToken `json:"token,omitempty"`
}

func (t storedToken) oauth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
	}
	if t.ExpiresAt > 0 {
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	}
	return tok
}

// readToken loads a token file in either layout.
func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s does not exist", ErrNoToken, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var wrapped tokenFile
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	if wrapped.Token != nil {
		return wrapped.Token.oauth2(), nil
	}

	var flat storedToken
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}
	if flat.AccessToken == "" && flat.RefreshToken == "" {
		return nil, fmt.Errorf("%w: %s holds no token", ErrNoToken, path)
	}
	return flat.oauth2(), nil
}

// writeToken stores tok in the wrapped layout.
func writeToken(path string, tok *oauth2.Token) error {
	st := &storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		st.ExpiresAt = tok.Expiry.Unix()
		st.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	data, err := json.MarshalIndent(tokenFile{CreationTimestamp: time.Now().Unix(), Token: st}, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// fileTokenSource writes refreshed tokens back to the token file so the
// next run starts from the newest refresh token.
type fileTokenSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (s *fileTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := writeToken(s.path, tok); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
		s.last = tok.AccessToken
	}
	return tok, nil
}
