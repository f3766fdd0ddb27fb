// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"masterannonce/internal/engine"
	"masterannonce/internal/middleware"
	"masterannonce/internal/models"
)

// defaultActivityLimit bounds the activity listing when no limit is given.
const defaultActivityLimit = 50

// ActivityLister returns the most recent lifecycle events.
type ActivityLister interface {
	Recent(ctx context.Context, limit int) ([]models.Activity, error)
}

// Annonces groups the annonce endpoints.
type Annonces struct {
	engine   *engine.Engine
	activity ActivityLister
}

// NewAnnonces creates the annonce handler group.
func NewAnnonces(eng *engine.Engine, activity ActivityLister) *Annonces {
	return &Annonces{engine: eng, activity: activity}
}

type updateInput struct {
	annonceInput
	Version *int64 `json:"version"`
}

// List handles GET /api/annonces.
func (h *Annonces) List(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseSearch(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.engine.Search(r.Context(), filter, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Get handles GET /api/annonces/{id}.
func (h *Annonces) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Create handles POST /api/annonces.
func (h *Annonces) Create(w http.ResponseWriter, r *http.Request) {
	var in annonceInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var v violations
	categoryID := in.validate(&v)
	if err := v.err(); err != nil {
		writeError(w, r, err)
		return
	}

	p := middleware.PrincipalFromCtx(r.Context())
	a, err := h.engine.Create(r.Context(), p.UserID, in.fields(), categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/annonces/"+a.ID.String())
	writeJSON(w, http.StatusCreated, a)
}

// Update handles PUT /api/annonces/{id}.
func (h *Annonces) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in updateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var v violations
	categoryID := in.validate(&v)
	if in.Version == nil {
		v.add("version", "is required")
	}
	if err := v.err(); err != nil {
		writeError(w, r, err)
		return
	}

	p := middleware.PrincipalFromCtx(r.Context())
	a, err := h.engine.Update(r.Context(), id, in.fields(), categoryID, *in.Version, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Patch handles PATCH /api/annonces/{id}.
func (h *Annonces) Patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in patchInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	var v violations
	categoryID := in.validate(&v)
	if err := v.err(); err != nil {
		writeError(w, r, err)
		return
	}

	patch := models.AnnoncePatch{
		Title:        in.Title,
		Description:  in.Description,
		Address:      in.Address,
		ContactEmail: in.Mail,
	}
	p := middleware.PrincipalFromCtx(r.Context())
	a, err := h.engine.Patch(r.Context(), id, patch, categoryID, *in.Version, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Publish handles PATCH /api/annonces/{id}/publish.
func (h *Annonces) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := middleware.PrincipalFromCtx(r.Context())
	a, err := h.engine.Publish(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Archive handles PATCH /api/annonces/{id}/archive. Admin only.
func (h *Annonces) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := middleware.PrincipalFromCtx(r.Context())
	a, err := h.engine.Archive(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/annonces/{id}.
func (h *Annonces) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	p := middleware.PrincipalFromCtx(r.Context())
	if err := h.engine.Delete(r.Context(), id, p.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Activity handles GET /api/annonces/activity. Admin only.
func (h *Annonces) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, r, &validationError{details: []string{"limit: must be between 1 and 500"}})
			return
		}
		limit = n
	}

	items, err := h.activity.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (in *annonceInput) fields() models.AnnonceFields {
	return models.AnnonceFields{
		Title:        in.Title,
		Description:  in.Description,
		Address:      in.Address,
		ContactEmail: in.Mail,
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, &validationError{details: []string{"id: must be a valid UUID"}}
	}
	return id, nil
}

// parseSearch reads filter and paging parameters from the query string.
// Sorting defaults to newest first; "sort=field" sorts ascending and
// "sort=field,desc" descending.
func parseSearch(r *http.Request) (models.AnnonceFilter, models.PageRequest, error) {
	q := r.URL.Query()
	var v violations

	f := models.AnnonceFilter{
		Keyword:    strings.TrimSpace(q.Get("keyword")),
		CategoryID: v.uuidRef("categoryId", q.Get("categoryId")),
		AuthorID:   v.uuidRef("authorId", q.Get("authorId")),
		From:       parseDate(&v, "fromDate", q.Get("fromDate"), false),
		To:         parseDate(&v, "toDate", q.Get("toDate"), true),
	}
	if s := q.Get("status"); s != "" {
		f.Status = models.AnnonceStatus(strings.ToUpper(s))
		if !f.Status.Valid() {
			v.add("status", "must be one of DRAFT, PUBLISHED, ARCHIVED")
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		v.add("toDate", "must not be before fromDate")
	}

	p := models.PageRequest{
		Page: queryInt(&v, "page", q.Get("page"), 0),
		Size: queryInt(&v, "size", q.Get("size"), engine.DefaultPageSize),
		Sort: "createdAt",
		Desc: true,
	}
	switch {
	case p.Page < 0:
		v.add("page", "must not be negative")
	case p.Page > engine.MaxPage:
		v.add("page", "must not exceed %d", engine.MaxPage)
	}
	if p.Size < 1 {
		v.add("size", "must be at least 1")
	}
	if raw := q.Get("sort"); raw != "" {
		field, dir, _ := strings.Cut(raw, ",")
		if !models.AnnonceDescriptor.IsSortable(field) {
			v.add("sort", "cannot sort by %q", field)
		}
		switch strings.ToLower(dir) {
		case "", "asc":
			p.Desc = false
		case "desc":
			p.Desc = true
		default:
			v.add("sort", "direction must be asc or desc")
		}
		p.Sort = field
	}

	return f, p, v.err()
}

func queryInt(v *violations, field, raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.add(field, "must be an integer")
		return fallback
	}
	return n
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain toDate
// covers the whole day.
func parseDate(v *violations, field, raw string, endOfDay bool) *time.Time {
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		v.add(field, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}
