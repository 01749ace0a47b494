package googletasks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"todosync/internal/service"
)

const listsBody = `{"items":[{"id":"list1","title":"Work"},{"id":"list2","title":"Home"}]}`

const list1Body = `{"items":[
  {"id":"t1","title":"Write report","notes":"q3 numbers","due":"2026-03-01T00:00:00.000Z","status":"needsAction"},
  {"id":"t2","title":"Book room","status":"completed"},
  {"id":"t3","title":"Old","status":"completed","hidden":true}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewWithHTTPClient(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c
}

func fixtureHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/users/@me/lists"):
		io.WriteString(w, listsBody)
	case strings.HasSuffix(r.URL.Path, "/lists/list1/tasks"):
		io.WriteString(w, list1Body)
	case strings.HasSuffix(r.URL.Path, "/lists/list2/tasks"):
		io.WriteString(w, `{"items":[]}`)
	default:
		http.NotFound(w, r)
	}
}

func TestFetchLists(t *testing.T) {
	c := newTestClient(t, fixtureHandler)

	lists, err := c.FetchLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 2)

	work := lists[0]
	require.Equal(t, "list1", work.ID)
	require.Equal(t, "Work", work.Title)
	require.Equal(t, service.RoleOwner, work.Role)
	require.Len(t, work.Tasks, 2)

	report := work.Tasks[0]
	require.Equal(t, "Write report", report.Name)
	require.Equal(t, "q3 numbers", report.Description)
	require.Equal(t, service.StatusNotStarted, report.Status)
	require.NotNil(t, report.DueDate)
	require.Equal(t, "2026-03-01", report.DueDate.Format("2006-01-02"))
	require.Equal(t, time.Local, report.DueDate.Location())

	require.Equal(t, service.StatusCompleted, work.Tasks[1].Status)
	require.Nil(t, work.Tasks[1].DueDate)

	require.Equal(t, "Home", lists[1].Title)
	require.Len(t, lists[1].Tasks, 0)
}

func TestFetchLists_Pages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/@me/lists") && r.URL.Query().Get("pageToken") == "":
			io.WriteString(w, `{"items":[{"id":"list1","title":"Work"}],"nextPageToken":"p2"}`)
		case strings.HasSuffix(r.URL.Path, "/users/@me/lists"):
			io.WriteString(w, `{"items":[{"id":"list2","title":"Home"}]}`)
		default:
			io.WriteString(w, `{"items":[]}`)
		}
	})

	lists, err := c.FetchLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 2)
	require.Equal(t, "list2", lists[1].ID)
}

func TestFetchLists_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	_, err := c.FetchLists(context.Background())
	require.ErrorIs(t, err, service.ErrNotAuthenticated)
}

func TestFetchLists_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"Not Found"}}`)
	})

	_, err := c.FetchLists(context.Background())
	require.ErrorIs(t, err, service.ErrBackend)
	require.Contains(t, err.Error(), "404")
}

func TestTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "google_token.json")

	_, err := LoadToken(path)
	require.Error(t, err)

	err = SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"})
	require.NoError(t, err)

	tok, err := LoadToken(path)
	require.NoError(t, err)
	require.Equal(t, "r", tok.RefreshToken)

	err = SaveToken(path, &oauth2.Token{AccessToken: "a"})
	require.NoError(t, err)
	_, err = LoadToken(path)
	require.Error(t, err)
}

func TestOAuthConfig(t *testing.T) {
	oc, err := OAuthConfig([]byte(`{"installed":{"client_id":"id","client_secret":"s","auth_uri":"https://a/auth","token_uri":"https://a/token","redirect_uris":["http://localhost"]}}`))
	require.NoError(t, err)
	require.Equal(t, "id", oc.ClientID)
	require.Equal(t, []string{Scope}, oc.Scopes)

	_, err = OAuthConfig([]byte(`{}`))
	require.Error(t, err)
}
