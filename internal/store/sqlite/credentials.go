package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

func (s *Store) CreateCredential(ctx context.Context, c *domain.Credential) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (identity_id, hash, created_at) VALUES (?, ?, ?)
		ON CONFLICT (identity_id) DO NOTHING`,
		c.IdentityID, c.Hash, c.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("credential %s: %w", c.IdentityID, domain.ErrExists)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, identityID string) (*domain.Credential, error) {
	var (
		c       domain.Credential
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT identity_id, hash, created_at FROM credentials WHERE identity_id = ?`, identityID).
		Scan(&c.IdentityID, &c.Hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential %s: %w", identityID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	c.CreatedAt = time.UnixMicro(created).UTC()
	return &c, nil
}
