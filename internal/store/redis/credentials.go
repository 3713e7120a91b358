package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

// CreateCredential stores a credential unless the identity already has one
func (s *Store) CreateCredential(ctx context.Context, c *domain.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	ok, err := s.client.SetNX(ctx, CredentialKey(c.IdentityID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	if !ok {
		return fmt.Errorf("credential %s: %w", c.IdentityID, domain.ErrExists)
	}
	return nil
}

// GetCredential retrieves the credential of an identity
func (s *Store) GetCredential(ctx context.Context, identityID string) (*domain.Credential, error) {
	data, err := s.client.Get(ctx, CredentialKey(identityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("credential %s: %w", identityID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	var c domain.Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &c, nil
}
