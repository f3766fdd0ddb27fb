// Package enginetest provides in-memory stores for exercising the engine
// and its HTTP adapter without Postgres.
package enginetest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"masterannonce/internal/engine"
	"masterannonce/internal/models"
	"masterannonce/internal/store"
)

// Annonces is a concurrency-safe in-memory engine.Repository. Writes are
// conditional on the stored version, like the SQL store.
type Annonces struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Annonce

	// Writes counts successful Insert, Save and Delete calls.
	Writes int
}

// NewAnnonces returns an empty repository.
func NewAnnonces() *Annonces {
	return &Annonces{items: make(map[uuid.UUID]models.Annonce)}
}

func (r *Annonces) FindByID(_ context.Context, id uuid.UUID) (*models.Annonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *Annonces) Insert(_ context.Context, a *models.Annonce) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = *a
	r.Writes++
	return nil
}

func (r *Annonces) Save(_ context.Context, a *models.Annonce, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[a.ID]
	if !ok || cur.Version != expectedVersion {
		return engine.Conflict()
	}
	next := *a
	next.Version = expectedVersion + 1
	r.items[a.ID] = next
	r.Writes++
	return nil
}

func (r *Annonces) Delete(_ context.Context, id uuid.UUID, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.items[id]
	if !ok || cur.Version != expectedVersion {
		return engine.Conflict()
	}
	delete(r.items, id)
	r.Writes++
	return nil
}

func (r *Annonces) Search(_ context.Context, f models.AnnonceFilter, p models.PageRequest) ([]models.Annonce, int64, error) {
	r.mu.Lock()
	var matched []models.Annonce
	for _, a := range r.items {
		if matches(a, f) {
			matched = append(matched, a)
		}
	}
	r.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(matched[i], matched[j], p.Sort)
		if c == 0 {
			c = strings.Compare(matched[i].ID.String(), matched[j].ID.String())
		}
		if p.Desc {
			return c > 0
		}
		return c < 0
	})

	total := int64(len(matched))
	start := p.Page * p.Size
	if start >= len(matched) {
		return []models.Annonce{}, total, nil
	}
	end := min(start+p.Size, len(matched))
	return matched[start:end], total, nil
}

// Put stores a directly, bypassing the engine.
func (r *Annonces) Put(a models.Annonce) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = a
}

// compare orders two ads by a sortable field; unknown fields sort by
// creation time, like the SQL store.
func compare(a, b models.Annonce, field string) int {
	switch field {
	case "id":
		return strings.Compare(a.ID.String(), b.ID.String())
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func matches(a models.Annonce, f models.AnnonceFilter) bool {
	if kw := strings.ToLower(f.Keyword); kw != "" &&
		!strings.Contains(strings.ToLower(a.Title), kw) &&
		!strings.Contains(strings.ToLower(a.Description), kw) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *f.CategoryID) {
		return false
	}
	if f.AuthorID != nil && a.AuthorID != *f.AuthorID {
		return false
	}
	if f.From != nil && a.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && a.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// Users is an in-memory engine.UserFinder.
type Users map[uuid.UUID]*models.User

func (u Users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return u[id], nil
}

// Add registers a user with the given name and role and returns it.
func (u Users) Add(username string, role models.Role) *models.User {
	user := &models.User{ID: uuid.New(), Username: username, Email: username + "@example.com", Role: role}
	u[user.ID] = user
	return user
}

// Categories is an in-memory engine.CategoryFinder.
type Categories map[uuid.UUID]*models.Category

func (c Categories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	return c[id], nil
}

// List returns every category ordered by label.
func (c Categories) List(context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(c))
	for _, cat := range c {
		out = append(out, *cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

// Create adds a category, rejecting labels that differ only in case.
func (c Categories) Create(_ context.Context, label string) (*models.Category, error) {
	for _, cat := range c {
		if strings.EqualFold(cat.Label, label) {
			return nil, store.ErrDuplicate
		}
	}
	return c.Add(label), nil
}

// Add registers a category and returns it.
func (c Categories) Add(label string) *models.Category {
	cat := &models.Category{ID: uuid.New(), Label: label}
	c[cat.ID] = cat
	return cat
}

// Recorder collects engine notifications and outcomes.
type Recorder struct {
	mu         sync.Mutex
	Activities []models.Activity
	Outcomes   map[string]int
}

func (r *Recorder) Notify(_ context.Context, a models.Activity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Activities = append(r.Activities, a)
}

func (r *Recorder) Observe(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Outcomes == nil {
		r.Outcomes = make(map[string]int)
	}
	r.Outcomes[operation+":"+outcome]++
}

// Recent returns up to limit notifications, newest first.
func (r *Recorder) Recent(_ context.Context, limit int) ([]models.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Activity, 0, limit)
	for i := len(r.Activities) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.Activities[i])
	}
	return out, nil
}
