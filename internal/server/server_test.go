// internal/server/server_test.go
package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfjones/chatter/internal/db"
	"github.com/mfjones/chatter/internal/storage"
	"github.com/mfjones/chatter/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "chatter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.RunMigrations())

	srv, err := New(database, Config{
		JWTSecret: "test-secret",
		Storage:   storage.Config{Backend: "local", LocalPath: t.TempDir()},
	})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func signupAndLogin(t *testing.T, srv *Server, email, username string) (token string, userID string) {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email": email, "username": username, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, resp.User.ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestSignupValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email": "a@test.io", "username": "a", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email": "a@test.io", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	signupAndLogin(t, srv, "dup@test.io", "dup")

	rec := doJSON(t, srv, http.MethodPost, "/auth/v1/signup", "", map[string]string{
		"email": "dup@test.io", "username": "other", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_already_exists")
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	signupAndLogin(t, srv, "a@test.io", "a")

	rec := doJSON(t, srv, http.MethodPost, "/auth/v1/token?grant_type=password", "", map[string]string{
		"email": "a@test.io", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rooms", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUser(t *testing.T) {
	srv := newTestServer(t)
	token, userID := signupAndLogin(t, srv, "me@test.io", "me")

	rec := doJSON(t, srv, http.MethodGet, "/auth/v1/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var user store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "me", user.Username)
}

func TestRoomLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token, userID := signupAndLogin(t, srv, "owner@test.io", "owner")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rooms", token, map[string]string{
		"name": "general",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var room store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, store.RoomPublic, room.Type)
	assert.Equal(t, userID, room.CreatorID)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rooms", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 1)

	rec = doJSON(t, srv, http.MethodPut, "/api/v1/rooms/"+room.ID, token, map[string]string{
		"name": "renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "renamed", updated.Name)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/rooms/"+room.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rooms/"+room.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomAdminOnlyMutations(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := signupAndLogin(t, srv, "owner@test.io", "owner")
	otherToken, _ := signupAndLogin(t, srv, "other@test.io", "other")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rooms", ownerToken, map[string]string{"name": "general"})
	require.Equal(t, http.StatusOK, rec.Code)
	var room store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))

	rec = doJSON(t, srv, http.MethodPut, "/api/v1/rooms/"+room.ID, otherToken, map[string]string{"name": "hijacked"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/rooms/"+room.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestJoinRoom(t *testing.T) {
	srv := newTestServer(t)
	ownerToken, _ := signupAndLogin(t, srv, "owner@test.io", "owner")
	otherToken, _ := signupAndLogin(t, srv, "other@test.io", "other")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rooms", ownerToken, map[string]string{"name": "general"})
	require.Equal(t, http.StatusOK, rec.Code)
	var room store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/rooms/"+room.ID+"/join", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Joining twice is fine.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/rooms/"+room.ID+"/join", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/rooms/"+room.ID+"/members", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []store.Membership
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	assert.Len(t, members, 2)
}

func TestDirectRoomReuse(t *testing.T) {
	srv := newTestServer(t)
	aToken, _ := signupAndLogin(t, srv, "a@test.io", "a")
	bToken, bID := signupAndLogin(t, srv, "b@test.io", "b")

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/rooms/direct", aToken, map[string]string{"userId": bID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.Equal(t, store.RoomDirect, first.Type)

	// The same pair from either side resolves to the same room.
	rec = doJSON(t, srv, http.MethodGet, "/auth/v1/user", aToken, nil)
	var aUser store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &aUser))

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/rooms/direct", bToken, map[string]string{"userId": aUser.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var second store.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)
}

func TestUpdateStatus(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "a@test.io", "a")

	rec := doJSON(t, srv, http.MethodPut, "/api/v1/users/status", token, map[string]string{"status": "BUSY"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// With no live websocket connection the user stays OFFLINE.
	rec = doJSON(t, srv, http.MethodPut, "/api/v1/users/status", token, map[string]string{"status": "AWAY"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), store.StatusOffline)
}

func TestListUsersExcludesSelf(t *testing.T) {
	srv := newTestServer(t)
	aToken, aID := signupAndLogin(t, srv, "a@test.io", "a")
	signupAndLogin(t, srv, "b@test.io", "b")

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/users", aToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []store.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.NotEqual(t, aID, users[0].ID)
}

func TestUploadAndFetchObject(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "a@test.io", "a")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="pic.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/storage/v1/upload", &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.URL)

	rec = doJSON(t, srv, http.MethodGet, resp.URL, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/storage/v1/object/uploads/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/storage/v1/upload", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReactionsEndpointEmpty(t *testing.T) {
	srv := newTestServer(t)
	token, _ := signupAndLogin(t, srv, "a@test.io", "a")

	rec := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/messages/%s/reactions", "no-such-message"), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
