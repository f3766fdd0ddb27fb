package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"masterannonce/internal/cache"
	"masterannonce/internal/engine"
	"masterannonce/internal/models"
	"masterannonce/internal/store"
)

// CategoryStore is the category persistence the handlers need.
type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	Create(ctx context.Context, label string) (*models.Category, error)
}

// ResponseCache stores encoded response bodies.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte)
	Invalidate(ctx context.Context, key string)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (nopCache) Set(context.Context, string, []byte)        {}
func (nopCache) Invalidate(context.Context, string)         {}

// Categories groups the category endpoints.
type Categories struct {
	store CategoryStore
	cache ResponseCache
}

// NewCategories creates the category handler group. A nil cache disables
// response caching.
func NewCategories(s CategoryStore, c ResponseCache) *Categories {
	if c == nil {
		c = nopCache{}
	}
	return &Categories{store: s, cache: c}
}

// List handles GET /api/v1/categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	if body, ok := h.cache.Get(r.Context(), cache.CategoriesKey); ok {
		w.Header().Set("X-Cache", "HIT")
		writeRaw(w, http.StatusOK, body)
		return
	}

	list, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Category{}
	}
	body, err := json.Marshal(list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cache.Set(r.Context(), cache.CategoriesKey, body)
	w.Header().Set("X-Cache", "MISS")
	writeRaw(w, http.StatusOK, body)
}

// Get handles GET /api/v1/categories/{id}.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c == nil {
		writeError(w, r, engine.NotFound("Category", id))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Create handles POST /api/v1/categories. Admin only.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Label string `json:"label"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.Label = strings.TrimSpace(in.Label)
	if err := validateLabel(in.Label); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.store.Create(r.Context(), in.Label)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.cache.Invalidate(r.Context(), cache.CategoriesKey)
	writeJSON(w, http.StatusCreated, c)
}

var _ CategoryStore = (*store.CategoryStore)(nil)
