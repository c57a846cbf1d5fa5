package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"medprofile/core/auth"
	"medprofile/core/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHandler(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username":  "alice123",
		"password":  "secret1",
		"email":     "alice@example.com",
		"fullName":  "Alice Liddell",
		"birthDate": "1990-05-01",
		"gender":    "female",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	var data struct {
		User struct {
			ID           string `json:"id"`
			Username     string `json:"username"`
			Email        string `json:"email"`
			PersonalData struct {
				FullName string `json:"fullName"`
				Gender   string `json:"gender"`
			} `json:"personalData"`
		} `json:"user"`
	}
	decodeData(t, resp, &data)
	assert.Equal(t, "alice123", data.User.Username)
	assert.Equal(t, "Alice Liddell", data.User.PersonalData.FullName)
	assert.Len(t, data.User.ID, 36)

	stored := env.repo.stored(data.User.ID)
	require.NotNil(t, stored)
	assert.True(t, auth.CheckPasswordHash("secret1", stored.PasswordHash))
	assert.NotNil(t, stored.MedicalProfile.Allergies)
}

func TestRegisterHandler_LongPassword(t *testing.T) {
	env := newTestEnv(t)
	password := strings.Repeat("a", 73)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "longpass",
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)

	rec, _ = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "longpass",
		"password": password,
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegisterHandler_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "al",
		"password": "123",
		"email":    "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Validation failed", resp.Message)
	assert.ElementsMatch(t, []string{
		validation.MsgUsernameTooShort,
		validation.MsgPasswordTooShort,
		validation.MsgInvalidEmail,
	}, resp.Errors)
	assert.Empty(t, env.repo.users)
}

func TestRegisterHandler_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.repo.seedUser(t, "u-1", "alice123", "secret1")

	rec, resp := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice123",
		"password": "another1",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User with this username already exists", resp.Message)
	assert.Len(t, env.repo.users, 1)
}

func TestRegisterHandler_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/register", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", resp.Message)
}

func TestLoginHandler(t *testing.T) {
	env := newTestEnv(t)
	u := env.repo.seedUser(t, "u-1", "alice123", "secret1")

	rec, resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice123",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	var data struct {
		Token string `json:"token"`
		User  struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	decodeData(t, resp, &data)
	assert.Equal(t, u.ID, data.User.ID)

	claims, err := env.tokens.Verify(data.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID())
	assert.Equal(t, "alice123", claims.Username)

	assert.NotNil(t, env.repo.stored(u.ID).LastLogin)
}

func TestLoginHandler_BadCredentialsLookIdentical(t *testing.T) {
	env := newTestEnv(t)
	env.repo.seedUser(t, "u-1", "alice123", "secret1")

	wrongPass, wrongResp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice123",
		"password": "wrong-password",
	})
	unknown, unknownResp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "nobody",
		"password": "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, msgInvalidCredentials, wrongResp.Message)
	assert.Equal(t, wrongResp, unknownResp)
	assert.Nil(t, env.repo.stored("u-1").LastLogin)
}

func TestLoginHandler_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice123"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password are required", resp.Message)
}

func TestMeHandler(t *testing.T) {
	env := newTestEnv(t)
	u := env.repo.seedUser(t, "u-1", "alice123", "secret1")
	_, err := env.repo.UpdateMedicalProfile(context.Background(), u.ID, medicalWithNotes("keep private"))
	require.NoError(t, err)

	rec, resp := env.do(t, http.MethodGet, "/api/auth/me", env.tokenFor(t, u), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, resp.Success)
	assert.NotContains(t, rec.Body.String(), "keep private")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	var data struct {
		User struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	decodeData(t, resp, &data)
	assert.Equal(t, "alice123", data.User.Username)
}

func TestProfileGreetingHandler(t *testing.T) {
	env := newTestEnv(t)
	u := env.repo.seedUser(t, "u-1", "alice123", "secret1")

	rec, resp := env.do(t, http.MethodGet, "/api/auth/profile", env.tokenFor(t, u), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome, alice123!", resp.Message)
	assert.Contains(t, string(resp.Data), "secretData")
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	u := env.repo.seedUser(t, "u-1", "alice123", "secret1")

	expired, err := auth.NewTokenManager(testSecret, -time.Minute).Issue(u.ID, u.Username)
	require.NoError(t, err)
	foreign, err := auth.NewTokenManager([]byte("other-secret"), time.Hour).Issue(u.ID, u.Username)
	require.NoError(t, err)
	ghost, err := env.tokens.Issue("missing-user", "ghost")
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"no header", "", http.StatusUnauthorized, "Access token not provided"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Access token not provided"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Access token not provided"},
		{"garbage", "Bearer not.a.token", http.StatusForbidden, "Invalid token"},
		{"wrong secret", "Bearer " + foreign, http.StatusForbidden, "Invalid token"},
		{"expired", "Bearer " + expired, http.StatusForbidden, "Token has expired"},
		{"unknown user", "Bearer " + ghost, http.StatusForbidden, "User not found"},
		{"lowercase scheme", "bearer " + env.tokenFor(t, u), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(http.MethodGet, "/api/auth/me", tt.header)
			rec := serve(env.handler, req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.message != "" {
				assert.True(t, strings.Contains(rec.Body.String(), tt.message), rec.Body.String())
			}
		})
	}
}
