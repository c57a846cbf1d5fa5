package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"medprofile/core/auth"
	"medprofile/model"
	"medprofile/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

// memoryUserRepo is an in-memory UserRepository with the same projections
// as the gorm implementation.
type memoryUserRepo struct {
	mu      sync.Mutex
	users   map[string]*model.User
	pingErr error
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*model.User)}
}

func (m *memoryUserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return nil, repository.ErrDuplicateUser
		}
	}
	c := *user
	m.users[user.ID] = &c
	return user, nil
}

func (m *memoryUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, err := m.FindCompleteByID(ctx, id)
	if err != nil || u == nil {
		return nil, err
	}
	return u.WithoutNotes(), nil
}

func (m *memoryUserRepo) FindCompleteByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	c.PasswordHash = ""
	return &c, nil
}

func (m *memoryUserRepo) UpdateMedicalProfile(ctx context.Context, id string, profile model.MedicalProfile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	profile.Normalize()
	u.MedicalProfile = profile
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memoryUserRepo) UpdatePersonalData(ctx context.Context, id string, data model.PersonalData) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return false, nil
	}
	u.PersonalData = data
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memoryUserRepo) UpdateLastLogin(ctx context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now().UTC()
		u.LastLogin = &now
	}
}

func (m *memoryUserRepo) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *memoryUserRepo) stored(id string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

// seedUser stores a user directly, hashing with the minimum cost to keep tests fast.
func (m *memoryUserRepo) seedUser(t *testing.T, id, username, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := model.NewUser(id, username, string(hash), username+"@example.com", model.PersonalData{FullName: "Test " + username})
	_, err = m.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

type testEnv struct {
	handler http.Handler
	api     *APIHandler
	repo    *memoryUserRepo
	tokens  *auth.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemoryUserRepo()
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	api := NewAPIHandler(repo, tokens)
	return &testEnv{handler: NewRouter(api), api: api, repo: repo, tokens: tokens}
}

func (e *testEnv) tokenFor(t *testing.T, u *model.User) string {
	t.Helper()
	token, err := e.tokens.Issue(u.ID, u.Username)
	require.NoError(t, err)
	return token
}

type testResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// do sends body as JSON (a string is sent verbatim) and decodes the envelope.
func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, testResponse) {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp testResponse
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func decodeData(t *testing.T, resp testResponse, dst interface{}) {
	t.Helper()
	require.NotEmpty(t, resp.Data)
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}

var errBoom = errors.New("boom")

func newRequest(method, path, authorization string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func medicalWithNotes(notes string) model.MedicalProfile {
	return model.MedicalProfile{
		BloodType: "O+",
		Height:    170,
		Weight:    65,
		Allergies: []string{"penicillin"},
		Notes:     notes,
	}
}
