// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package engine_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masterannonce/internal/engine"
	"masterannonce/internal/engine/enginetest"
	"masterannonce/internal/models"
)

// fixture wires an engine to in-memory stores with one author, one other
// user and one category.
type fixture struct {
	eng        *engine.Engine
	repo       *enginetest.Annonces
	users      enginetest.Users
	categories enginetest.Categories
	events     *enginetest.Recorder
	author     *models.User
	other      *models.User
	admin      *models.User
	category   *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:       enginetest.NewAnnonces(),
		users:      enginetest.Users{},
		categories: enginetest.Categories{},
		events:     &enginetest.Recorder{},
	}
	f.author = f.users.Add("alice", models.RoleUser)
	f.other = f.users.Add("bob", models.RoleUser)
	f.admin = f.users.Add("root", models.RoleAdmin)
	f.category = f.categories.Add("Vehicles")

	f.eng = engine.New(f.repo, f.users, f.categories)
	f.eng.SetNotifier(f.events)
	f.eng.SetRecorder(f.events)
	return f
}

func (f *fixture) create(t *testing.T, title string) *models.Annonce {
	t.Helper()
	a, err := f.eng.Create(context.Background(), f.author.ID, models.AnnonceFields{
		Title:        title,
		Description:  "A description",
		Address:      "1 Main Street",
		ContactEmail: "alice@example.com",
	}, nil)
	require.NoError(t, err)
	return a
}

// setStatus forces an ad into a status without going through the engine.
func (f *fixture) setStatus(t *testing.T, id uuid.UUID, s models.AnnonceStatus) {
	t.Helper()
	a, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, a)
	a.Status = s
	f.repo.Put(*a)
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fields := models.AnnonceFields{
		Title:        "Car",
		Description:  "Red, low mileage",
		Address:      "12 Rue de Paris",
		ContactEmail: "alice@example.com",
	}
	a, err := f.eng.Create(ctx, f.author.ID, fields, &f.category.ID)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, a.ID)
	assert.Equal(t, models.AnnonceStatusDraft, a.Status)
	assert.Equal(t, int64(0), a.Version)
	assert.Equal(t, f.author.ID, a.AuthorID)
	assert.Equal(t, "alice", a.AuthorUsername)
	require.NotNil(t, a.CategoryID)
	assert.Equal(t, f.category.ID, *a.CategoryID)
	assert.Equal(t, "Vehicles", a.CategoryLabel)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := f.eng.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, fields.Title, got.Title)
	assert.Equal(t, fields.Description, got.Description)
	assert.Equal(t, fields.Address, got.Address)
	assert.Equal(t, fields.ContactEmail, got.ContactEmail)
	assert.Equal(t, models.AnnonceStatusDraft, got.Status)
	assert.Equal(t, f.author.ID, got.AuthorID)

	require.Len(t, f.events.Activities, 1)
	assert.Equal(t, models.ActivityCreated, f.events.Activities[0].Type)
}

func TestCreateUnknownReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.Create(ctx, uuid.New(), models.AnnonceFields{Title: "x"}, nil)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	missing := uuid.New()
	_, err = f.eng.Create(ctx, f.author.ID, models.AnnonceFields{Title: "x"}, &missing)
	assert.ErrorIs(t, err, engine.ErrNotFound)
	assert.Contains(t, err.Error(), "Category")

	assert.Zero(t, f.repo.Writes, "failed creates must not persist")
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestEveryOperationReportsMissingAd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	ops := map[string]func() error{
		"update": func() error {
			_, err := f.eng.Update(ctx, id, models.AnnonceFields{Title: "x"}, nil, 0, f.author.ID)
			return err
		},
		"patch": func() error {
			_, err := f.eng.Patch(ctx, id, models.AnnoncePatch{}, nil, 0, f.author.ID)
			return err
		},
		"publish": func() error {
			_, err := f.eng.Publish(ctx, id, f.author.ID)
			return err
		},
		"archive": func() error {
			_, err := f.eng.Archive(ctx, id, f.admin.ID)
			return err
		},
		"delete": func() error {
			return f.eng.Delete(ctx, id, f.author.ID)
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), engine.ErrNotFound)
		})
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	updated, err := f.eng.Update(ctx, a.ID, models.AnnonceFields{
		Title:        "Car2",
		Description:  "",
		Address:      "2 Main Street",
		ContactEmail: "new@example.com",
	}, &f.category.ID, a.Version, f.author.ID)
	require.NoError(t, err)

	assert.Equal(t, "Car2", updated.Title)
	assert.Equal(t, "", updated.Description)
	assert.Equal(t, int64(1), updated.Version)
	assert.Equal(t, "Vehicles", updated.CategoryLabel)

	stored, err := f.eng.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Car2", stored.Title)
	assert.Equal(t, int64(1), stored.Version)
}

func TestUpdateKeepsCategoryWhenOmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.eng.Create(ctx, f.author.ID, models.AnnonceFields{Title: "Bike"}, &f.category.ID)
	require.NoError(t, err)

	updated, err := f.eng.Update(ctx, a.ID, models.AnnonceFields{Title: "Bike 2"}, nil, 0, f.author.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.CategoryID)
	assert.Equal(t, f.category.ID, *updated.CategoryID)
}

func TestUpdateRejections(t *testing.T) {
	tests := []struct {
		name    string
		status  models.AnnonceStatus
		actor   func(f *fixture) uuid.UUID
		version int64
		want    error
	}{
		{"other user", models.AnnonceStatusDraft, func(f *fixture) uuid.UUID { return f.other.ID }, 0, engine.ErrForbidden},
		{"admin is not author", models.AnnonceStatusDraft, func(f *fixture) uuid.UUID { return f.admin.ID }, 0, engine.ErrForbidden},
		{"published", models.AnnonceStatusPublished, func(f *fixture) uuid.UUID { return f.author.ID }, 0, engine.ErrBusinessRule},
		{"ownership before status", models.AnnonceStatusPublished, func(f *fixture) uuid.UUID { return f.other.ID }, 0, engine.ErrForbidden},
		{"stale version", models.AnnonceStatusDraft, func(f *fixture) uuid.UUID { return f.author.ID }, 7, engine.ErrVersionConflict},
		{"status before version", models.AnnonceStatusPublished, func(f *fixture) uuid.UUID { return f.author.ID }, 7, engine.ErrBusinessRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			a := f.create(t, "Car")
			f.setStatus(t, a.ID, tt.status)
			writes := f.repo.Writes

			_, err := f.eng.Update(ctx, a.ID, models.AnnonceFields{Title: "Hacked"}, nil, tt.version, tt.actor(f))
			assert.ErrorIs(t, err, tt.want)

			_, err = f.eng.Patch(ctx, a.ID, models.AnnoncePatch{Title: ptr("Hacked")}, nil, tt.version, tt.actor(f))
			assert.ErrorIs(t, err, tt.want)

			stored, err := f.eng.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, "Car", stored.Title, "rejected edits must not mutate the ad")
			assert.Equal(t, writes, f.repo.Writes, "rejected edits must not persist")
		})
	}
}

func TestUpdateUnknownCategoryDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	missing := uuid.New()
	_, err := f.eng.Update(ctx, a.ID, models.AnnonceFields{Title: "Car2"}, &missing, 0, f.author.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	stored, err := f.eng.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Car", stored.Title)
	assert.Equal(t, int64(0), stored.Version)
}

func TestArchivedAdRemainsEditable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")
	f.setStatus(t, a.ID, models.AnnonceStatusArchived)

	updated, err := f.eng.Update(ctx, a.ID, models.AnnonceFields{Title: "Still mine"}, nil, 0, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, "Still mine", updated.Title)
	assert.Equal(t, models.AnnonceStatusArchived, updated.Status)
}

func TestPatchAppliesOnlySetFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	patched, err := f.eng.Patch(ctx, a.ID, models.AnnoncePatch{
		Address: ptr("99 Elm Road"),
	}, nil, 0, f.author.ID)
	require.NoError(t, err)

	assert.Equal(t, "Car", patched.Title)
	assert.Equal(t, "A description", patched.Description)
	assert.Equal(t, "99 Elm Road", patched.Address)
	assert.Equal(t, "alice@example.com", patched.ContactEmail)
	assert.Equal(t, int64(1), patched.Version)

	// An explicit empty string is a value, not an omission.
	patched, err = f.eng.Patch(ctx, a.ID, models.AnnoncePatch{Description: ptr("")}, nil, 1, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, "", patched.Description)
	assert.Equal(t, "Car", patched.Title)
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	_, err := f.eng.Publish(ctx, a.ID, f.other.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)

	published, err := f.eng.Publish(ctx, a.ID, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnnonceStatusPublished, published.Status)
	assert.Equal(t, int64(1), published.Version)

	_, err = f.eng.Publish(ctx, a.ID, f.author.ID)
	assert.ErrorIs(t, err, engine.ErrInvalidTransition, "publishing twice is an error")
	assert.NotErrorIs(t, err, engine.ErrBusinessRule)
}

func TestArchiveIsUnconditional(t *testing.T) {
	for _, from := range []models.AnnonceStatus{
		models.AnnonceStatusDraft,
		models.AnnonceStatusPublished,
		models.AnnonceStatusArchived,
	} {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t)
			a := f.create(t, "Car")
			f.setStatus(t, a.ID, from)

			// No ownership check: any caller reaching the engine may archive.
			archived, err := f.eng.Archive(context.Background(), a.ID, f.other.ID)
			require.NoError(t, err)
			assert.Equal(t, models.AnnonceStatusArchived, archived.Status)
			assert.Equal(t, a.Version+1, archived.Version)
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	err := f.eng.Delete(ctx, a.ID, f.author.ID)
	require.ErrorIs(t, err, engine.ErrBusinessRule)
	assert.Contains(t, err.Error(), "archived")
	assert.Contains(t, err.Error(), "DRAFT")

	_, err = f.eng.Archive(ctx, a.ID, f.admin.ID)
	require.NoError(t, err)

	err = f.eng.Delete(ctx, a.ID, f.other.ID)
	assert.ErrorIs(t, err, engine.ErrForbidden)

	require.NoError(t, f.eng.Delete(ctx, a.ID, f.author.ID))

	_, err = f.eng.Get(ctx, a.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

// TestLifecycleScenario walks an ad from creation to deletion.
func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	published, err := f.eng.Publish(ctx, a.ID, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnnonceStatusPublished, published.Status)

	_, err = f.eng.Update(ctx, a.ID, models.AnnonceFields{Title: "Car2"}, nil, published.Version, f.author.ID)
	assert.ErrorIs(t, err, engine.ErrBusinessRule)

	archived, err := f.eng.Archive(ctx, a.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnnonceStatusArchived, archived.Status)

	require.NoError(t, f.eng.Delete(ctx, a.ID, f.author.ID))
	_, err = f.eng.Get(ctx, a.ID)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	var types []models.ActivityType
	for _, ev := range f.events.Activities {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []models.ActivityType{
		models.ActivityCreated,
		models.ActivityPublished,
		models.ActivityArchived,
		models.ActivityDeleted,
	}, types)
	assert.Equal(t, 1, f.events.Outcomes["update:business_rule"])
}

func TestConcurrentUpdatesFromSameVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "Car")

	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		lost    int
	)
	for i := range writers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.eng.Update(ctx, a.ID, models.AnnonceFields{Title: "writer"}, nil, 0, f.author.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, engine.ErrVersionConflict):
				lost++
			default:
				t.Errorf("writer %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, writers-1, lost)

	stored, err := f.eng.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestSearchPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for range 25 {
		f.create(t, "Lamp")
	}
	f.create(t, "Sofa")

	page, err := f.eng.Search(ctx, models.AnnonceFilter{Keyword: "lamp"}, models.PageRequest{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultPageSize, page.Size)
	assert.Equal(t, int64(25), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Content, 5)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)

	page, err = f.eng.Search(ctx, models.AnnonceFilter{}, models.PageRequest{Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, engine.MaxPageSize, page.Size)
	assert.Len(t, page.Content, 26)
}

func TestSearchRejectsPageBeyondBound(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Lamp")

	_, err := f.eng.Search(context.Background(), models.AnnonceFilter{},
		models.PageRequest{Page: math.MaxInt / 10, Size: engine.MaxPageSize})
	assert.ErrorIs(t, err, engine.ErrBusinessRule)

	page, err := f.eng.Search(context.Background(), models.AnnonceFilter{},
		models.PageRequest{Page: engine.MaxPage, Size: engine.MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.False(t, page.HasNext)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "none", engine.Kind(nil))
	assert.Equal(t, "version_conflict", engine.Kind(engine.Conflict()))
	assert.Equal(t, "internal", engine.Kind(errors.New("boom")))
}

func ptr(s string) *string { return &s }
