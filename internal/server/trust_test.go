package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/taskgate/internal/auth"
	"github.com/terraconstructs/taskgate/internal/rbac"
	"github.com/terraconstructs/taskgate/internal/services/tasks"
)

// Internal services act on the trust headers alone.
func TestTasksRouter_TrustHeaders(t *testing.T) {
	router, err := NewTasksRouter(TasksOptions{
		Service:    tasks.NewService(nil, nil),
		Authorizer: rbac.MustDefault(),
	})
	require.NoError(t, err)

	cases := []struct {
		name        string
		userID      string
		authorities string
		want        int
	}{
		{name: "no principal", want: http.StatusUnauthorized},
		{name: "non numeric principal", userID: "abc", authorities: "ROLE_ADMIN", want: http.StatusBadRequest},
		{name: "user cannot delete", userID: "3", authorities: "ROLE_USER", want: http.StatusForbidden},
		{name: "empty authorities cannot delete", userID: "3", authorities: "", want: http.StatusForbidden},
		{name: "admin with bad id", userID: "3", authorities: "ROLE_ADMIN", want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := "/api/tasks/1"
			if tc.name == "admin with bad id" {
				path = "/api/tasks/nope"
			}
			req := httptest.NewRequest(http.MethodDelete, path, nil)
			if tc.userID != "" {
				req.Header.Set(auth.HeaderUserID, tc.userID)
				req.Header.Set(auth.HeaderAuthorities, tc.authorities)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRouters_RequireDependencies(t *testing.T) {
	_, err := NewTasksRouter(TasksOptions{})
	assert.Error(t, err)
	_, err = NewSubmissionsRouter(SubmissionsOptions{})
	assert.Error(t, err)
	_, err = NewUsersRouter(UsersOptions{})
	assert.Error(t, err)
	_, err = NewGatewayRouter(GatewayOptions{})
	assert.Error(t, err)
}
