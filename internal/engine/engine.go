// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package engine owns the classified-ad lifecycle: the DRAFT -> PUBLISHED ->
// ARCHIVED state machine, the ownership and status gates in front of every
// mutation, and optimistic version checks. It reads and writes through the
// Repository interface and never caches ad state between calls.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"masterannonce/internal/models"
)

// Search pagination bounds.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps page*size well inside the range of an int offset.
	MaxPage = 1_000_000
)

// Repository persists ads. FindByID returns (nil, nil) when the ad does
// not exist. Save and Delete are conditional on expectedVersion and return
// an error wrapping ErrVersionConflict when no row matched.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Annonce, error)
	Insert(ctx context.Context, a *models.Annonce) error
	Save(ctx context.Context, a *models.Annonce, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error
	Search(ctx context.Context, f models.AnnonceFilter, p models.PageRequest) ([]models.Annonce, int64, error)
}

// UserFinder resolves authors. Returns (nil, nil) when absent.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CategoryFinder resolves categories. Returns (nil, nil) when absent.
type CategoryFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// Notifier receives an Activity after every successful mutation.
// Implementations must not block for long; failures are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, a models.Activity)
}

// Recorder counts operation outcomes.
type Recorder interface {
	Observe(operation, outcome string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, models.Activity) {}

type nopRecorder struct{}

func (nopRecorder) Observe(string, string) {}

// Engine applies lifecycle operations to ads.
type Engine struct {
	annonces   Repository
	users      UserFinder
	categories CategoryFinder
	notifier   Notifier
	recorder   Recorder
	tracer     trace.Tracer
	now        func() time.Time
}

// New creates an Engine over the given stores.
func New(annonces Repository, users UserFinder, categories CategoryFinder) *Engine {
	return &Engine{
		annonces:   annonces,
		users:      users,
		categories: categories,
		notifier:   nopNotifier{},
		recorder:   nopRecorder{},
		tracer:     otel.Tracer("masterannonce/engine"),
		now:        time.Now,
	}
}

// SetNotifier installs the lifecycle event sink.
func (e *Engine) SetNotifier(n Notifier) {
	if n != nil {
		e.notifier = n
	}
}

// SetRecorder installs the outcome counter.
func (e *Engine) SetRecorder(r Recorder) {
	if r != nil {
		e.recorder = r
	}
}

// Create stores a new DRAFT ad owned by authorID.
func (e *Engine) Create(ctx context.Context, authorID uuid.UUID, fields models.AnnonceFields, categoryID *uuid.UUID) (a *models.Annonce, err error) {
	ctx, span := e.start(ctx, "create", uuid.Nil, authorID)
	defer func() { e.finish(span, "create", err) }()

	author, err := e.users.FindByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, NotFound("User", authorID)
	}

	category, err := e.resolveCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	a = &models.Annonce{
		ID:             uuid.New(),
		CreatedAt:      e.now().UTC().Truncate(time.Microsecond),
		Status:         models.AnnonceStatusDraft,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
	}
	applyFields(a, fields)
	setCategory(a, category)

	if err := e.annonces.Insert(ctx, a); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("annonce.id", a.ID.String()))

	e.emit(ctx, models.ActivityCreated, a, authorID)
	slog.Info("annonce created", "annonce_id", a.ID, "author_id", authorID)
	return a, nil
}

// Get returns the ad with the given id.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (a *models.Annonce, err error) {
	ctx, span := e.start(ctx, "get", id, uuid.Nil)
	defer func() { e.finish(span, "get", err) }()

	return e.load(ctx, id)
}

// Search returns one page of ads matching f. Page size defaults to
// DefaultPageSize and is capped at MaxPageSize. Pages past MaxPage are a
// business-rule failure.
func (e *Engine) Search(ctx context.Context, f models.AnnonceFilter, p models.PageRequest) (page models.Page[models.Annonce], err error) {
	ctx, span := e.start(ctx, "search", uuid.Nil, uuid.Nil)
	defer func() { e.finish(span, "search", err) }()

	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		return models.Page[models.Annonce]{}, fail(ErrBusinessRule, "page must not exceed %d", MaxPage)
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}

	items, total, err := e.annonces.Search(ctx, f, p)
	if err != nil {
		return models.Page[models.Annonce]{}, err
	}
	span.SetAttributes(attribute.Int("search.results", len(items)), attribute.Int64("search.total", total))
	return models.NewPage(items, p, total), nil
}

// Update replaces every editable field of an ad. A nil categoryID keeps
// the current category.
func (e *Engine) Update(ctx context.Context, id uuid.UUID, fields models.AnnonceFields, categoryID *uuid.UUID, version int64, actorID uuid.UUID) (a *models.Annonce, err error) {
	ctx, span := e.start(ctx, "update", id, actorID)
	defer func() { e.finish(span, "update", err) }()

	a, err = e.loadEditable(ctx, id, actorID, version)
	if err != nil {
		return nil, err
	}
	category, err := e.resolveCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	applyFields(a, fields)
	setCategory(a, category)

	if err := e.save(ctx, a); err != nil {
		return nil, err
	}
	e.emit(ctx, models.ActivityUpdated, a, actorID)
	return a, nil
}

// Patch applies only the non-nil fields of p. A nil categoryID keeps the
// current category.
func (e *Engine) Patch(ctx context.Context, id uuid.UUID, p models.AnnoncePatch, categoryID *uuid.UUID, version int64, actorID uuid.UUID) (a *models.Annonce, err error) {
	ctx, span := e.start(ctx, "patch", id, actorID)
	defer func() { e.finish(span, "patch", err) }()

	a, err = e.loadEditable(ctx, id, actorID, version)
	if err != nil {
		return nil, err
	}
	category, err := e.resolveCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Address != nil {
		a.Address = *p.Address
	}
	if p.ContactEmail != nil {
		a.ContactEmail = *p.ContactEmail
	}
	setCategory(a, category)

	if err := e.save(ctx, a); err != nil {
		return nil, err
	}
	e.emit(ctx, models.ActivityPatched, a, actorID)
	return a, nil
}

// Publish moves a DRAFT ad owned by actorID to PUBLISHED.
func (e *Engine) Publish(ctx context.Context, id, actorID uuid.UUID) (a *models.Annonce, err error) {
	ctx, span := e.start(ctx, "publish", id, actorID)
	defer func() { e.finish(span, "publish", err) }()

	a, err = e.loadOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if !a.CanBePublished() {
		return nil, fail(ErrInvalidTransition, "Only a DRAFT ad can be published (current status: %s)", a.Status)
	}

	a.Status = models.AnnonceStatusPublished
	if err := e.save(ctx, a); err != nil {
		return nil, err
	}
	e.emit(ctx, models.ActivityPublished, a, actorID)
	slog.Info("annonce published", "annonce_id", id, "actor_id", actorID)
	return a, nil
}

// Archive moves an ad to ARCHIVED from any status. Callers gate this on
// role; the engine performs no ownership check. actorID is recorded on the
// emitted activity only.
func (e *Engine) Archive(ctx context.Context, id, actorID uuid.UUID) (a *models.Annonce, err error) {
	ctx, span := e.start(ctx, "archive", id, actorID)
	defer func() { e.finish(span, "archive", err) }()

	a, err = e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("annonce.previous_status", string(a.Status)))

	a.Status = models.AnnonceStatusArchived
	if err := e.save(ctx, a); err != nil {
		return nil, err
	}
	e.emit(ctx, models.ActivityArchived, a, actorID)
	slog.Info("annonce archived", "annonce_id", id, "actor_id", actorID)
	return a, nil
}

// Delete permanently removes an ARCHIVED ad owned by actorID.
func (e *Engine) Delete(ctx context.Context, id, actorID uuid.UUID) (err error) {
	ctx, span := e.start(ctx, "delete", id, actorID)
	defer func() { e.finish(span, "delete", err) }()

	a, err := e.loadOwned(ctx, id, actorID)
	if err != nil {
		return err
	}
	if !a.CanBeDeleted() {
		return fail(ErrBusinessRule, "The ad must be archived before deletion (current status: %s)", a.Status)
	}

	if err := e.annonces.Delete(ctx, id, a.Version); err != nil {
		return err
	}
	e.emit(ctx, models.ActivityDeleted, a, actorID)
	slog.Info("annonce deleted", "annonce_id", id, "actor_id", actorID)
	return nil
}

// load fetches the current persisted ad.
func (e *Engine) load(ctx context.Context, id uuid.UUID) (*models.Annonce, error) {
	a, err := e.annonces.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, NotFound("Annonce", id)
	}
	return a, nil
}

// loadOwned fetches the ad and checks that actorID authored it.
func (e *Engine) loadOwned(ctx context.Context, id, actorID uuid.UUID) (*models.Annonce, error) {
	a, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsAuthor(actorID) {
		return nil, fail(ErrForbidden, "Only the author can perform this action")
	}
	return a, nil
}

// loadEditable runs the shared update/patch gate: ownership, then status,
// then the caller's version.
func (e *Engine) loadEditable(ctx context.Context, id, actorID uuid.UUID, version int64) (*models.Annonce, error) {
	a, err := e.loadOwned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if !a.CanBeModified() {
		return nil, fail(ErrBusinessRule, "A published ad can no longer be modified")
	}
	if a.Version != version {
		return nil, Conflict()
	}
	return a, nil
}

func (e *Engine) resolveCategory(ctx context.Context, id *uuid.UUID) (*models.Category, error) {
	if id == nil {
		return nil, nil
	}
	c, err := e.categories.FindByID(ctx, *id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NotFound("Category", *id)
	}
	return c, nil
}

// save persists a conditionally on the version it was loaded with.
func (e *Engine) save(ctx context.Context, a *models.Annonce) error {
	expected := a.Version
	if err := e.annonces.Save(ctx, a, expected); err != nil {
		return err
	}
	a.Version = expected + 1
	return nil
}

func (e *Engine) emit(ctx context.Context, typ models.ActivityType, a *models.Annonce, actorID uuid.UUID) {
	e.notifier.Notify(ctx, models.Activity{
		Type:       typ,
		AnnonceID:  a.ID,
		ActorID:    actorID,
		Status:     a.Status,
		Version:    a.Version,
		OccurredAt: e.now().UTC(),
	})
}

func (e *Engine) start(ctx context.Context, op string, id, actorID uuid.UUID) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("annonce.operation", op)}
	if id != uuid.Nil {
		attrs = append(attrs, attribute.String("annonce.id", id.String()))
	}
	if actorID != uuid.Nil {
		attrs = append(attrs, attribute.String("actor.id", actorID.String()))
	}
	return e.tracer.Start(ctx, "annonce."+op, trace.WithAttributes(attrs...))
}

func (e *Engine) finish(span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = Kind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("outcome", outcome))
	span.End()
	e.recorder.Observe(op, outcome)
}

func applyFields(a *models.Annonce, f models.AnnonceFields) {
	a.Title = f.Title
	a.Description = f.Description
	a.Address = f.Address
	a.ContactEmail = f.ContactEmail
}

func setCategory(a *models.Annonce, c *models.Category) {
	if c == nil {
		return
	}
	id := c.ID
	a.CategoryID = &id
	a.CategoryLabel = c.Label
}
