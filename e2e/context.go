// Package e2e drives a running laurel server through its HTTP surface with
// godog scenarios. Point LAUREL_E2E_URL at a freshly started instance; the
// suite mints its own bearer tokens with the server's signing key.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// identity is one synthetic user the suite acts as. IDs are minted once per
// username so steps can refer to users by name.
type identity struct {
	ID    uuid.UUID
	Email string
	Staff bool
}

// TestContext holds shared state across steps of one scenario: who is acting,
// the last response, and values saved for later steps.
type TestContext struct {
	baseURL    string
	signingKey []byte
	client     *http.Client

	mu         sync.Mutex
	identities map[string]*identity
	actor      string

	lastStatus int
	lastBody   any

	savedClaimCode string
}

func NewTestContext(baseURL, signingKey string) *TestContext {
	return &TestContext{
		baseURL:    strings.TrimRight(baseURL, "/"),
		signingKey: []byte(signingKey),
		client:     &http.Client{Timeout: 10 * time.Second},
		identities: make(map[string]*identity),
	}
}

// Reset clears per-scenario state. Minted identities survive so a user keeps
// the same ID across scenarios in one run.
func (tc *TestContext) Reset() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.actor = ""
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.savedClaimCode = ""
}

// SignInAs makes username the current actor, minting an identity on first
// sight. The email is derived as username@example.com so email-addressed
// scenarios can predict it. A priming request is sent so the server mirrors
// the user before other steps reference them.
func (tc *TestContext) SignInAs(username string, staff bool) error {
	tc.mu.Lock()
	id, ok := tc.identities[username]
	if !ok {
		id = &identity{ID: uuid.New(), Email: username + "@example.com", Staff: staff}
		tc.identities[username] = id
	}
	id.Staff = id.Staff || staff
	tc.actor = username
	tc.mu.Unlock()

	resp, err := tc.send(username, http.MethodGet, "/me/awards", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("priming request for %q returned %d", username, resp.StatusCode)
	}
	return nil
}

// Prime signs a user in without switching the current actor.
func (tc *TestContext) Prime(username string) error {
	tc.mu.Lock()
	current := tc.actor
	tc.mu.Unlock()
	if err := tc.SignInAs(username, false); err != nil {
		return err
	}
	tc.mu.Lock()
	tc.actor = current
	tc.mu.Unlock()
	return nil
}

// UserID returns the minted ID for a username the suite has seen.
func (tc *TestContext) UserID(username string) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	id, ok := tc.identities[username]
	if !ok {
		return "", fmt.Errorf("no identity minted for %q, sign them in first", username)
	}
	return id.ID.String(), nil
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) DELETE(path string) error {
	return tc.do(http.MethodDelete, path, nil)
}

func (tc *TestContext) do(method, path string, body any) error {
	tc.mu.Lock()
	actor := tc.actor
	tc.mu.Unlock()
	if actor == "" {
		return fmt.Errorf("no actor signed in")
	}

	resp, err := tc.send(actor, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	if len(raw) > 0 {
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("parse response body: %w", err)
		}
		tc.lastBody = parsed
	}
	return nil
}

func (tc *TestContext) send(username, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, tc.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	token, err := tc.mintToken(username)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return tc.client.Do(req)
}

func (tc *TestContext) mintToken(username string) (string, error) {
	tc.mu.Lock()
	id, ok := tc.identities[username]
	tc.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no identity minted for %q", username)
	}

	claims := jwt.MapClaims{
		"sub":       id.ID.String(),
		"username":  username,
		"email":     id.Email,
		"staff":     id.Staff,
		"superuser": false,
		"exp":       time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
}

// LastStatus returns the status code of the most recent request.
func (tc *TestContext) LastStatus() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.lastStatus
}

// GetResponseField walks a dot path into the last JSON body. Numeric path
// segments index into arrays, so "awards.0.badge_id" works.
func (tc *TestContext) GetResponseField(path string) (any, error) {
	tc.mu.Lock()
	node := tc.lastBody
	tc.mu.Unlock()
	if node == nil {
		return nil, fmt.Errorf("no response body recorded")
	}

	for _, segment := range strings.Split(path, ".") {
		switch v := node.(type) {
		case map[string]any:
			child, ok := v[segment]
			if !ok {
				return nil, fmt.Errorf("field %q not found in response", path)
			}
			node = child
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("field %q not found in response", path)
			}
			node = v[idx]
		default:
			return nil, fmt.Errorf("field %q not found in response", path)
		}
	}
	return node, nil
}

// SaveClaimCode remembers the claim code from the last response, looking in
// the deferred envelope first and then at a top-level code.
func (tc *TestContext) SaveClaimCode() error {
	code, err := tc.GetResponseField("deferred.claim_code")
	if err != nil {
		code, err = tc.GetResponseField("claim_code")
	}
	if err != nil {
		return fmt.Errorf("no claim code in last response: %w", err)
	}
	s, ok := code.(string)
	if !ok || s == "" {
		return fmt.Errorf("claim code field is not a string")
	}
	tc.mu.Lock()
	tc.savedClaimCode = s
	tc.mu.Unlock()
	return nil
}

// SavedClaimCode returns the code remembered by SaveClaimCode.
func (tc *TestContext) SavedClaimCode() (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.savedClaimCode == "" {
		return "", fmt.Errorf("no claim code saved")
	}
	return tc.savedClaimCode, nil
}
