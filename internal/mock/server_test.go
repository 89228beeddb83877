package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiowebux/apiharness/internal/types"
)

func newTestServer(t *testing.T, cfg *Config) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_CreateListDelete(t *testing.T) {
	s, ts := newTestServer(t, &Config{})

	resp := do(t, http.MethodPut, ts.URL+"/users", `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created types.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.UserID)
	assert.Equal(t, "Ada", created.Name)

	resp = do(t, http.MethodGet, ts.URL+"/users", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var users []types.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&users))
	require.Len(t, users, 1)
	assert.Equal(t, created.UserID, users[0].UserID)

	resp = do(t, http.MethodGet, ts.URL+"/users/"+created.UserID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/users/"+created.UserID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, s.Users())
	assert.Equal(t, []string{created.UserID}, s.DeletedIDs())

	resp = do(t, http.MethodDelete, ts.URL+"/users/"+created.UserID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_CreateValidatesBody(t *testing.T) {
	_, ts := newTestServer(t, &Config{})

	resp := do(t, http.MethodPut, ts.URL+"/users", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPut, ts.URL+"/users", `{"name":"","email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Seed(t *testing.T) {
	s, _ := newTestServer(t, &Config{Seed: []types.NewUser{
		{Name: "One", Email: "one@example.com"},
		{Name: "Two", Email: "two@example.com"},
	}})

	users := s.Users()
	require.Len(t, users, 2)
	assert.Equal(t, "One", users[0].Name)
	assert.Equal(t, "Two", users[1].Name)
}

func TestServer_FaultEveryNth(t *testing.T) {
	_, ts := newTestServer(t, &Config{Faults: []Fault{
		{Route: RouteCreateUser, Status: http.StatusServiceUnavailable, Every: 2},
	}})

	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp := do(t, http.MethodPut, ts.URL+"/users", `{"name":"a","email":"a@example.com"}`)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{200, 503, 200, 503}, statuses)
}

func TestServer_Logging(t *testing.T) {
	s, ts := newTestServer(t, &Config{Logging: true})

	do(t, http.MethodPut, ts.URL+"/users", `{"name":"a","email":"a@example.com"}`)
	do(t, http.MethodGet, ts.URL+"/users", "")

	logs := s.GetLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, RouteCreateUser, logs[0].MatchedRule)
	assert.Equal(t, `{"name":"a","email":"a@example.com"}`, logs[0].Body)
	assert.Equal(t, http.StatusOK, logs[0].Status)
	assert.Equal(t, RouteListUsers, logs[1].MatchedRule)

	s.ClearLogs()
	assert.Empty(t, s.GetLogs())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mock.yaml")
	content := `
port: 9090
logging: true
seed:
  - name: Seeded
    email: seeded@example.com
faults:
  - route: list-users
    delay: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.Logging)
	require.Len(t, cfg.Seed, 1)
	require.Len(t, cfg.Faults, 1)
	assert.Equal(t, RouteListUsers, cfg.Faults[0].Route)
}

func TestValidateConfig_RejectsUnknownRoute(t *testing.T) {
	err := ValidateConfig(&Config{Faults: []Fault{{Route: "update-user"}}})
	assert.Error(t, err)

	err = ValidateConfig(&Config{Faults: []Fault{{Route: RouteGetUser, Status: 42}}})
	assert.Error(t, err)
}
