package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/guttosm/capitolledger/internal/domain/models"
)

// MemberRegistry maps filer names to member ids, creating stubs for unknown names.
type MemberRegistry interface {
	Resolve(ctx context.Context, name string) (models.MemberRef, error)
}

type memberRegistry struct {
	db *sql.DB
}

func NewMemberRegistry(db *sql.DB) MemberRegistry {
	return &memberRegistry{db: db}
}

// Resolve returns the member named name, inserting a stub the first time it is seen.
func (r *memberRegistry) Resolve(ctx context.Context, name string) (models.MemberRef, error) {
	name = strings.TrimSpace(name)
	var m models.MemberRef
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO members (name, stub) VALUES ($1, TRUE)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, stub`, name).Scan(&m.ID, &m.Name, &m.Stub)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.MemberRef{}, err
	}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, stub FROM members WHERE name = $1`, name).Scan(&m.ID, &m.Name, &m.Stub)
	if err != nil {
		return models.MemberRef{}, err
	}
	return m, nil
}
