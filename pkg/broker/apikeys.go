package broker

import (
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/security"
	"github.com/cuemby/holt/pkg/types"
)

// APIKeyCreate mints a credential pair for programmatic access. The
// response is the only place the secret ever appears in the clear.
func (b *Broker) APIKeyCreate(requester *types.User) (*types.APIKeyCreated, error) {
	keyID, secret, err := security.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &types.APIKey{
		ID:         uuid.New().String(),
		UserID:     requester.ID,
		KeyID:      keyID,
		SecretHash: security.HashAPIKeySecret(secret),
		CreatedAt:  time.Now().UTC(),
	}
	if err := b.store.CreateAPIKey(key); err != nil {
		return nil, err
	}

	log.WithUserID(requester.ID).Info().Str("key_id", keyID).Msg("Created api key")
	return &types.APIKeyCreated{
		ID:        key.ID,
		KeyID:     key.KeyID,
		Secret:    secret,
		CreatedAt: key.CreatedAt,
	}, nil
}

// APIKeyList returns the requester's keys, hashes and all secrets elided.
func (b *Broker) APIKeyList(requester *types.User) ([]*types.APIKey, error) {
	return b.store.ListAPIKeysByUser(requester.ID)
}

// APIKeyDeleteAll removes every key the requester owns and returns how
// many went.
func (b *Broker) APIKeyDeleteAll(requester *types.User) (int, error) {
	n, err := b.store.DeleteAPIKeysByUser(requester.ID)
	if err != nil {
		return 0, err
	}
	log.WithUserID(requester.ID).Info().Int("keys", n).Msg("Deleted api keys")
	return n, nil
}
