// Package e2e runs the Gherkin scenarios under features/ against a running
// rankgate server. The server must use the dev rank card verifier so that
// "has verified their rank card" succeeds without a wallet.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Settings point the suite at a server and the OIDC secret it trusts.
type Settings struct {
	BaseURL    string
	IDTokenKey string
	Issuer     string
	Audience   string
}

// TestContext carries per-scenario state between steps.
type TestContext struct {
	settings Settings
	client   *http.Client

	nonce   string
	status  int
	body    []byte
	tokens  map[string]string
	members map[string]string
	saved   map[string]string
}

func NewTestContext(s Settings) *TestContext {
	tc := &TestContext{settings: s, client: &http.Client{Timeout: 10 * time.Second}}
	tc.Reset()
	return tc
}

// Reset clears state before each scenario. Subjects get a fresh nonce so
// reruns against the same server never reuse a member.
func (tc *TestContext) Reset() {
	tc.nonce = strconv.FormatInt(time.Now().UnixNano(), 36)
	tc.status = 0
	tc.body = nil
	tc.tokens = map[string]string{}
	tc.members = map[string]string{}
	tc.saved = map[string]string{}
}

func (tc *TestContext) signIDToken(name string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "e2e-" + strings.ToLower(name) + "-" + tc.nonce,
		"name": name,
		"iss":  tc.settings.Issuer,
		"aud":  tc.settings.Audience,
		"iat":  now.Unix(),
		"exp":  now.Add(5 * time.Minute).Unix(),
	})
	return token.SignedString([]byte(tc.settings.IDTokenKey))
}

// Login signs an ID token for name and exchanges it for an access token.
func (tc *TestContext) Login(name string) error {
	idToken, err := tc.signIDToken(name)
	if err != nil {
		return err
	}
	if err := tc.Request(http.MethodPost, "/v1/auth/login", "", map[string]string{"id_token": idToken}); err != nil {
		return err
	}
	if tc.status != http.StatusCreated && tc.status != http.StatusOK {
		return fmt.Errorf("login %s: status %d: %s", name, tc.status, tc.body)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		Member      struct {
			ID string `json:"id"`
		} `json:"member"`
	}
	if err := json.Unmarshal(tc.body, &resp); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	tc.tokens[name] = resp.AccessToken
	tc.members[name] = resp.Member.ID
	return nil
}

// Request sends body as JSON, authenticated as the named member unless as is
// empty. {alias} placeholders in path are replaced with saved IDs.
func (tc *TestContext) Request(method, path, as string, body any) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, tc.settings.BaseURL+tc.expand(path), reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		token, ok := tc.tokens[as]
		if !ok {
			return fmt.Errorf("%s has not logged in", as)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.status = resp.StatusCode
	tc.body, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) expand(path string) string {
	for alias, value := range tc.saved {
		path = strings.ReplaceAll(path, "{"+alias+"}", value)
	}
	return path
}

func (tc *TestContext) Status() int { return tc.status }

func (tc *TestContext) Body() []byte { return tc.body }

// Field returns a top-level field of the last JSON response.
func (tc *TestContext) Field(name string) (any, error) {
	var m map[string]any
	if err := json.Unmarshal(tc.body, &m); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %s", tc.body)
	}
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("field %q missing from %s", name, tc.body)
	}
	return v, nil
}

// Save stores a string field of the last response under alias.
func (tc *TestContext) Save(field, alias string) error {
	v, err := tc.Field(field)
	if err != nil {
		return err
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("field %q is %T, not a string", field, v)
	}
	tc.saved[alias] = s
	return nil
}

func (tc *TestContext) Saved(alias string) string { return tc.saved[alias] }

func (tc *TestContext) MemberID(name string) string { return tc.members[name] }
