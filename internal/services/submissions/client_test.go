package submissions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/taskgate/internal/auth"
)

var caller = auth.Identity{PrincipalID: "5", Roles: auth.NewRoleSet(auth.RoleAdmin)}

func TestHTTPTaskClient_ForwardsTrustHeaders(t *testing.T) {
	var gotID, gotRoles, gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(auth.HeaderUserID)
		gotRoles = r.Header.Get(auth.HeaderAuthorities)
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":12,"title":"Ship it","status":"DONE"}`))
	}))
	defer srv.Close()

	client, err := NewHTTPTaskClient(srv.URL, time.Second)
	require.NoError(t, err)

	task, err := client.CompleteTask(context.Background(), 12, caller)
	require.NoError(t, err)
	assert.Equal(t, &TaskRef{ID: 12, Title: "Ship it", Status: "DONE"}, task)
	assert.Equal(t, "5", gotID)
	assert.Equal(t, "ROLE_ADMIN", gotRoles)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/tasks/12/complete", gotPath)
}

func TestHTTPTaskClient_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{}`, want: ErrTaskNotFound},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`, want: ErrTaskRejected},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, want: ErrDependencyUnavailable},
		{name: "not json", status: http.StatusOK, body: `<html>`, want: ErrDependencyUnavailable},
		{name: "no id", status: http.StatusOK, body: `{"title":"x"}`, want: ErrTaskNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client, err := NewHTTPTaskClient(srv.URL, time.Second)
			require.NoError(t, err)

			_, err = client.GetTask(context.Background(), 1, caller)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHTTPTaskClient_TimeoutIsDependencyUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := NewHTTPTaskClient(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = client.GetTask(context.Background(), 1, caller)
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestNewHTTPTaskClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPTaskClient("not a url", time.Second)
	assert.Error(t, err)
}
