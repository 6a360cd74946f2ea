package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cpope-co/portal-session/httpapi"
	"github.com/cpope-co/portal-session/session"
)

const testToken = "header.payload.signature"

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   map[string]string
}

func newTestServer(t *testing.T, status int, token string, recorded *recordedRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if recorded != nil {
			recorded.method = r.Method
			recorded.path = r.URL.Path
			recorded.query = r.URL.RawQuery
			recorded.header = r.Header.Clone()
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				recorded.body = body
			}
		}
		if token != "" {
			w.Header().Set(httpapi.TokenHeader, token)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLogin_Success(t *testing.T) {
	var recorded recordedRequest
	server := newTestServer(t, http.StatusOK, testToken, &recorded)

	client := httpapi.New(server.URL)
	token, err := client.Login(context.Background(), "jane.admin@example.com", "password123")

	require.NoError(t, err)
	require.Equal(t, testToken, token)
	require.Equal(t, http.MethodPost, recorded.method)
	require.Equal(t, "/api/auth/login", recorded.path)
	require.Equal(t, "jane.admin@example.com", recorded.body["username"])
	require.Equal(t, "password123", recorded.body["password"])
	require.NotEmpty(t, recorded.header.Get("X-Request-Id"))
	require.Empty(t, recorded.header.Get("Authorization"))
}

func TestLogin_NoTokenHeader(t *testing.T) {
	server := newTestServer(t, http.StatusOK, "", nil)

	client := httpapi.New(server.URL)
	_, err := client.Login(context.Background(), "jane.admin@example.com", "password123")

	require.ErrorIs(t, err, session.NoTokenErr)
}

func TestLogin_NonSuccessStatus(t *testing.T) {
	server := newTestServer(t, http.StatusForbidden, testToken, nil)

	client := httpapi.New(server.URL)
	_, err := client.Login(context.Background(), "jane.admin@example.com", "wrong")

	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestRefresh_SendsBearer(t *testing.T) {
	var recorded recordedRequest
	server := newTestServer(t, http.StatusOK, testToken, &recorded)

	client := httpapi.New(server.URL)
	token, err := client.Refresh(context.Background(), "current-credential")

	require.NoError(t, err)
	require.Equal(t, testToken, token)
	require.Equal(t, "/api/auth/refresh", recorded.path)
	require.Equal(t, "Bearer current-credential", recorded.header.Get("Authorization"))
}

func TestVerify_PassesOneTimeToken(t *testing.T) {
	var recorded recordedRequest
	server := newTestServer(t, http.StatusOK, testToken, &recorded)

	client := httpapi.New(server.URL)
	token, err := client.Verify(context.Background(), "one time+token")

	require.NoError(t, err)
	require.Equal(t, testToken, token)
	require.Equal(t, http.MethodGet, recorded.method)
	require.Equal(t, "/api/auth/verify", recorded.path)
	require.Contains(t, recorded.query, "token=")
	require.Empty(t, recorded.header.Get("Authorization"))
}

func TestLogout_Success(t *testing.T) {
	var recorded recordedRequest
	server := newTestServer(t, http.StatusOK, "", &recorded)

	client := httpapi.New(server.URL)
	require.NoError(t, client.Logout(context.Background(), "current-credential"))
	require.Equal(t, "/api/auth/logout", recorded.path)
	require.Equal(t, "Bearer current-credential", recorded.header.Get("Authorization"))
}

func TestLogout_ServerError(t *testing.T) {
	server := newTestServer(t, http.StatusInternalServerError, "", nil)

	client := httpapi.New(server.URL)
	err := client.Logout(context.Background(), "current-credential")
	require.Error(t, err)
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	var recorded recordedRequest
	server := newTestServer(t, http.StatusOK, testToken, &recorded)

	client := httpapi.New(server.URL + "/")
	_, err := client.Refresh(context.Background(), "cred")
	require.NoError(t, err)
	require.Equal(t, "/api/auth/refresh", recorded.path)
}
