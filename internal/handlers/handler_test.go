// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Handlers run against the in-memory engine and account fakes, so these
// tests need neither PostgreSQL nor Valkey.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"masterannonce/internal/apierror"
	"masterannonce/internal/auth"
	"masterannonce/internal/engine"
	"masterannonce/internal/engine/enginetest"
	"masterannonce/internal/middleware"
	"masterannonce/internal/models"
	"masterannonce/internal/store"
)

// annonceEnv wires the annonce handlers to in-memory collaborators.
type annonceEnv struct {
	Repo       *enginetest.Annonces
	Users      enginetest.Users
	Categories enginetest.Categories
	Recorder   *enginetest.Recorder
	Engine     *engine.Engine
	Handler    *Annonces
	Author     *auth.Principal
	Stranger   *auth.Principal
	Admin      *auth.Principal
}

func newAnnonceEnv(t *testing.T) *annonceEnv {
	t.Helper()
	env := &annonceEnv{
		Repo:       enginetest.NewAnnonces(),
		Users:      enginetest.Users{},
		Categories: enginetest.Categories{},
		Recorder:   &enginetest.Recorder{},
	}
	env.Engine = engine.New(env.Repo, env.Users, env.Categories)
	env.Engine.SetNotifier(env.Recorder)
	env.Engine.SetRecorder(env.Recorder)
	env.Handler = NewAnnonces(env.Engine, env.Recorder)

	env.Author = principalFor(env.Users.Add("author", models.RoleUser))
	env.Stranger = principalFor(env.Users.Add("stranger", models.RoleUser))
	env.Admin = principalFor(env.Users.Add("admin", models.RoleAdmin))
	return env
}

func principalFor(u *models.User) *auth.Principal {
	return &auth.Principal{UserID: u.ID, Username: u.Username, Role: u.Role, TokenID: "test-" + u.Username}
}

// newRequest builds a request carrying an optional caller and chi URL
// parameters given as key/value pairs.
func newRequest(method, target, body string, p *auth.Principal, params ...string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, rdr)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}

	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if p != nil {
		ctx = middleware.WithPrincipal(ctx, p)
	}
	return r.WithContext(ctx)
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, r)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) apierror.Body {
	t.Helper()
	return decodeBody[apierror.Body](t, rr)
}

// memCategories is an in-memory CategoryStore with unique labels.
type memCategories struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Category
	lists int
}

func newMemCategories(labels ...string) *memCategories {
	m := &memCategories{items: map[uuid.UUID]models.Category{}}
	for _, l := range labels {
		m.Create(context.Background(), l)
	}
	return m
}

func (m *memCategories) List(context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	out := make([]models.Category, 0, len(m.items))
	for _, c := range m.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (m *memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.items[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *memCategories) Create(_ context.Context, label string) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.items {
		if strings.EqualFold(c.Label, label) {
			return nil, store.ErrDuplicate
		}
	}
	c := models.Category{ID: uuid.New(), Label: label}
	m.items[c.ID] = c
	return &c, nil
}

// memCache is an in-memory ResponseCache.
type memCache map[string][]byte

func (c memCache) Get(_ context.Context, key string) ([]byte, bool) {
	b, ok := c[key]
	return b, ok
}

func (c memCache) Set(_ context.Context, key string, body []byte) { c[key] = body }

func (c memCache) Invalidate(_ context.Context, key string) { delete(c, key) }
