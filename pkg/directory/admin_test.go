package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bastiangx/mentionserve/pkg/lookup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminServer(t *testing.T, dir *Directory) *httptest.Server {
	t.Helper()
	mux := Mux(NewHandler(dir, 30), lookup.DefaultPath)
	NewAdmin(dir).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAdminAddIsSearchable(t *testing.T) {
	dir := newTestDirectory(t, "Bob")
	srv := newAdminServer(t, dir)

	resp, err := http.Post(srv.URL+AdminPath, "application/json", strings.NewReader(`{"name":" Bobby "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var u User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
	assert.Equal(t, "Bobby", u.Name)
	assert.Equal(t, int64(2), u.ID)
	assert.Equal(t, []string{"Bob", "Bobby"}, searchNames(dir.Search("bo", 10)))
}

func TestAdminDeleteRemovesFromSearch(t *testing.T) {
	dir := newTestDirectory(t, "Bob", "Bobby")
	srv := newAdminServer(t, dir)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+AdminPath+"/1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var u User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&u))
	assert.Equal(t, "Bob", u.Name)
	assert.Equal(t, []string{"Bobby"}, searchNames(dir.Search("bo", 10)))
}

func TestAdminRejects(t *testing.T) {
	dir := newTestDirectory(t, "Bob")
	mux := http.NewServeMux()
	NewAdmin(dir).Register(mux)

	testCases := []struct {
		description string
		method      string
		target      string
		body        string
		status      int
	}{
		{"Empty name", http.MethodPost, AdminPath, `{"name":"  "}`, http.StatusBadRequest},
		{"Bad body", http.MethodPost, AdminPath, `{`, http.StatusBadRequest},
		{"Bad id", http.MethodDelete, AdminPath + "/x", "", http.StatusBadRequest},
		{"Unknown id", http.MethodDelete, AdminPath + "/99", "", http.StatusNotFound},
		{"Get", http.MethodGet, AdminPath, "", http.StatusMethodNotAllowed},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body)))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, 1, dir.Len())
}
