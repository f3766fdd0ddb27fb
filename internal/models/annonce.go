// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// AnnonceStatus represents the lifecycle stage of a classified ad.
type AnnonceStatus string

const (
	AnnonceStatusDraft     AnnonceStatus = "DRAFT"
	AnnonceStatusPublished AnnonceStatus = "PUBLISHED"
	AnnonceStatusArchived  AnnonceStatus = "ARCHIVED"
)

// Valid reports whether s is one of the known lifecycle stages.
func (s AnnonceStatus) Valid() bool {
	switch s {
	case AnnonceStatusDraft, AnnonceStatusPublished, AnnonceStatusArchived:
		return true
	}
	return false
}

// Annonce is a classified-ad listing. AuthorUsername and CategoryLabel are
// read-only projections filled in by the store on reads.
type Annonce struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Address      string        `json:"address"`
	ContactEmail string        `json:"mail"`
	CreatedAt    time.Time     `json:"createdAt"`
	Status       AnnonceStatus `json:"status"`
	AuthorID     uuid.UUID     `json:"authorId"`
	CategoryID   *uuid.UUID    `json:"categoryId"`
	Version      int64         `json:"version"`

	AuthorUsername string `json:"authorUsername,omitempty"`
	CategoryLabel  string `json:"categoryLabel,omitempty"`
}

// CanBeModified returns true unless the ad is published. Archived ads
// remain editable.
func (a *Annonce) CanBeModified() bool {
	return a.Status != AnnonceStatusPublished
}

// CanBePublished returns true only for drafts.
func (a *Annonce) CanBePublished() bool {
	return a.Status == AnnonceStatusDraft
}

// CanBeDeleted returns true only once the ad has been archived.
func (a *Annonce) CanBeDeleted() bool {
	return a.Status == AnnonceStatusArchived
}

// IsAuthor reports whether userID created this ad.
func (a *Annonce) IsAuthor(userID uuid.UUID) bool {
	return a.AuthorID == userID
}

// AnnonceFields carries the editable text fields of an ad.
type AnnonceFields struct {
	Title        string
	Description  string
	Address      string
	ContactEmail string
}

// AnnoncePatch carries a partial edit. Nil pointers leave the field untouched.
type AnnoncePatch struct {
	Title        *string
	Description  *string
	Address      *string
	ContactEmail *string
}

// AnnonceFilter narrows a search. Zero values disable a criterion.
type AnnonceFilter struct {
	Keyword    string
	Status     AnnonceStatus
	CategoryID *uuid.UUID
	AuthorID   *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// PageRequest selects a page of search results.
type PageRequest struct {
	Page int
	Size int
	Sort string
	Desc bool
}

// Page is one page of search results.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	HasNext       bool  `json:"hasNext"`
	HasPrevious   bool  `json:"hasPrevious"`
}

// NewPage builds a Page from a slice of results and the total match count.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
		HasNext:       req.Page+1 < pages,
		HasPrevious:   req.Page > 0,
	}
}
