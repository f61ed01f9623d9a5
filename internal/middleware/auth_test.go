package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"promptui/internal/models"
	"promptui/internal/session"
)

// fakeSessions returns a fixed session or error.
type fakeSessions struct {
	data *session.Data
	err  error
}

func (f fakeSessions) Get(context.Context, *http.Request) (*session.Data, error) {
	return f.data, f.err
}

// fakeUsers serves users from a map.
type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f[id], nil
}

// okHandler is a simple handler that records the actor it saw.
func okHandler() (http.Handler, **models.Actor, *bool) {
	var (
		seen   *models.Actor
		called bool
	)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen = ActorFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, &seen, &called
}

func TestActorFromCtx(t *testing.T) {
	t.Run("returns actor when present", func(t *testing.T) {
		actor := &models.Actor{ID: uuid.New(), Username: "ed", Role: models.RoleEditor}
		got := ActorFromCtx(WithActor(context.Background(), actor))
		if got != actor {
			t.Fatalf("got %+v, want %+v", got, actor)
		}
	})

	t.Run("returns nil when not present", func(t *testing.T) {
		if got := ActorFromCtx(context.Background()); got != nil {
			t.Errorf("expected nil actor, got %+v", got)
		}
	})

	t.Run("returns nil for wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), ActorKey, "not-an-actor")
		if got := ActorFromCtx(ctx); got != nil {
			t.Errorf("expected nil for wrong type, got %+v", got)
		}
	})
}

func TestLoadSession(t *testing.T) {
	active := &models.User{ID: uuid.New(), Username: "ana", Role: models.RoleEditor, IsActive: true}
	disabled := &models.User{ID: uuid.New(), Username: "gone", Role: models.RoleAdmin, IsActive: false}
	users := fakeUsers{active.ID: active, disabled.ID: disabled}

	tests := []struct {
		name      string
		sessions  fakeSessions
		wantActor bool
	}{
		{"no session", fakeSessions{}, false},
		{"session store error", fakeSessions{err: errors.New("valkey down")}, false},
		{"active user", fakeSessions{data: &session.Data{UserID: active.ID, Role: "user"}}, true},
		{"deactivated user", fakeSessions{data: &session.Data{UserID: disabled.ID}}, false},
		{"deleted user", fakeSessions{data: &session.Data{UserID: uuid.New()}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, seen, called := okHandler()
			handler := LoadSession(tt.sessions, users)(next)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/prompts", nil))

			if !*called {
				t.Fatal("next handler was not called")
			}
			if got := *seen != nil; got != tt.wantActor {
				t.Fatalf("actor present = %v, want %v", got, tt.wantActor)
			}
			if tt.wantActor {
				// The role comes from the account, not the session payload.
				if (*seen).Role != models.RoleEditor || (*seen).Username != "ana" {
					t.Errorf("actor = %+v, want editor ana", *seen)
				}
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Run("rejects anonymous requests with JSON 401", func(t *testing.T) {
		next, _, called := okHandler()
		rr := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))

		if *called {
			t.Error("next handler should not be called")
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"error"`) {
			t.Errorf("body: got %q, want a JSON error", rr.Body.String())
		}
	})

	t.Run("passes signed-in actor through", func(t *testing.T) {
		next, _, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(WithActor(req.Context(), &models.Actor{ID: uuid.New(), Role: models.RoleUser}))
		rr := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(rr, req)

		if !*called || rr.Code != http.StatusOK {
			t.Errorf("called=%v status=%d, want handler called with 200", *called, rr.Code)
		}
	})
}
