// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"masterannonce/internal/engine"
	"masterannonce/internal/models"
)

// AnnonceStore persists ads. Every write is conditional on the version
// column; a write that matches no row reports engine.ErrVersionConflict.
type AnnonceStore struct {
	db *sql.DB
}

// NewAnnonceStore creates a new AnnonceStore.
func NewAnnonceStore(db *sql.DB) *AnnonceStore {
	return &AnnonceStore{db: db}
}

const annonceSelect = `
	SELECT a.id, a.title, a.description, a.address, a.mail, a.created_at,
	       a.status, a.author_id, a.category_id, a.version,
	       u.username, COALESCE(c.label, '')
	FROM annonces a
	JOIN users u ON u.id = a.author_id
	LEFT JOIN categories c ON c.id = a.category_id`

// sortColumns whitelists the sortable fields of the search endpoint.
var sortColumns = map[string]string{
	"id":        "a.id",
	"title":     "a.title",
	"createdAt": "a.created_at",
	"status":    "a.status",
}

func scanAnnonce(scanner interface{ Scan(...any) error }) (*models.Annonce, error) {
	var a models.Annonce
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Description, &a.Address, &a.ContactEmail, &a.CreatedAt,
		&a.Status, &a.AuthorID, &a.CategoryID, &a.Version,
		&a.AuthorUsername, &a.CategoryLabel,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByID retrieves an ad with its author and category. Returns nil if not found.
func (s *AnnonceStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Annonce, error) {
	row := s.db.QueryRowContext(ctx, annonceSelect+` WHERE a.id = $1`, id)
	a, err := scanAnnonce(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find annonce by id: %w", err)
	}
	return a, nil
}

// Insert stores a new ad. ID, CreatedAt, Status and Version come from a.
func (s *AnnonceStore) Insert(ctx context.Context, a *models.Annonce) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annonces (id, title, description, address, mail, created_at, status, author_id, category_id, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, a.ID, a.Title, a.Description, a.Address, a.ContactEmail, a.CreatedAt,
		a.Status, a.AuthorID, a.CategoryID, a.Version)
	if err != nil {
		return fmt.Errorf("insert annonce: %w", err)
	}
	return nil
}

// Save writes the mutable fields of a and bumps the version, provided the
// stored version still equals expectedVersion.
func (s *AnnonceStore) Save(ctx context.Context, a *models.Annonce, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE annonces SET
			title = $1, description = $2, address = $3, mail = $4,
			status = $5, category_id = $6, version = version + 1
		WHERE id = $7 AND version = $8
	`, a.Title, a.Description, a.Address, a.ContactEmail,
		a.Status, a.CategoryID, a.ID, expectedVersion)
	if err != nil {
		return fmt.Errorf("update annonce: %w", err)
	}
	return expectOneRow(res, "update annonce")
}

// Delete removes the ad if its stored version equals expectedVersion.
func (s *AnnonceStore) Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM annonces WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete annonce: %w", err)
	}
	return expectOneRow(res, "delete annonce")
}

// Search returns one page of ads matching f and the total match count.
func (s *AnnonceStore) Search(ctx context.Context, f models.AnnonceFilter, p models.PageRequest) ([]models.Annonce, int64, error) {
	where, args := annonceWhere(f)

	var total int64
	countQuery := `SELECT COUNT(*) FROM annonces a` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count annonces: %w", err)
	}

	column, ok := sortColumns[p.Sort]
	if !ok {
		column = "a.created_at"
	}
	direction := "ASC"
	if p.Desc {
		direction = "DESC"
	}

	args = append(args, p.Size, p.Page*p.Size)
	query := fmt.Sprintf("%s%s ORDER BY %s %s, a.id %s LIMIT $%d OFFSET $%d",
		annonceSelect, where, column, direction, direction, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search annonces: %w", err)
	}
	defer rows.Close()

	var items []models.Annonce
	for rows.Next() {
		a, err := scanAnnonce(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan annonce: %w", err)
		}
		items = append(items, *a)
	}
	return items, total, rows.Err()
}

// annonceWhere builds the WHERE clause for f with positional arguments.
func annonceWhere(f models.AnnonceFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		add("(a.title ILIKE $%[1]d OR a.description ILIKE $%[1]d)", "%"+escapeLike(kw)+"%")
	}
	if f.Status != "" {
		add("a.status = $%d", string(f.Status))
	}
	if f.CategoryID != nil {
		add("a.category_id = $%d", *f.CategoryID)
	}
	if f.AuthorID != nil {
		add("a.author_id = $%d", *f.AuthorID)
	}
	if f.From != nil {
		add("a.created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("a.created_at <= $%d", *f.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike escapes LIKE wildcards so a keyword matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return engine.Conflict()
	}
	return nil
}
