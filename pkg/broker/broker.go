package broker

import (
	"fmt"
	"time"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"

	"github.com/cuemby/holt/pkg/keys"
	"github.com/cuemby/holt/pkg/log"
	"github.com/cuemby/holt/pkg/s3"
	"github.com/cuemby/holt/pkg/security"
	"github.com/cuemby/holt/pkg/storage"
	"github.com/cuemby/holt/pkg/types"
)

// Broker implements the control-plane operations: user provisioning,
// node and root registration, workspace placement, shares, and credential
// minting. It owns no HTTP concerns; pkg/api wires it to routes.
type Broker struct {
	store   storage.Store
	clients s3.ClientSource
	vault   *security.Vault
}

// New creates a broker over the given store, client source and vault.
func New(store storage.Store, clients s3.ClientSource, vault *security.Vault) *Broker {
	return &Broker{
		store:   store,
		clients: clients,
		vault:   vault,
	}
}

// ProvisionUser finds or creates the user behind a verified login. Users
// are keyed by email; the username is derived from the identity claims and
// suffixed when already taken.
func (b *Broker) ProvisionUser(email, usernameHint string) (*types.User, error) {
	if email == "" {
		return nil, fmt.Errorf("login carries no email: %w", errdefs.ErrInvalidArgument)
	}

	user, err := b.store.GetUserByEmail(email)
	if err == nil {
		return user, nil
	}
	if !errdefs.IsNotFound(err) {
		return nil, err
	}

	username := keys.SanitizeUsername(usernameHint)
	if username == "" {
		username = "user"
	}

	user = &types.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	err = b.store.CreateUser(user)
	if errdefs.IsAlreadyExists(err) {
		// Username taken by another account, disambiguate with a
		// short random suffix.
		user.Username = username + "-" + uuid.New().String()[:8]
		err = b.store.CreateUser(user)
	}
	if err != nil {
		return nil, err
	}

	log.WithUserID(user.ID).Info().Str("username", user.Username).Msg("Provisioned user")
	return user, nil
}

// Users lists all registered users.
func (b *Broker) Users() ([]*types.User, error) {
	return b.store.ListUsers()
}

// unsealNode returns a copy of the node with its secret key decrypted,
// ready to hand to the client cache. The stored node is never mutated.
func (b *Broker) unsealNode(node *types.StorageNode) (*types.StorageNode, error) {
	secret, err := b.vault.OpenString(node.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal credentials for node %s: %w", node.Name, err)
	}
	unsealed := *node
	unsealed.SecretAccessKey = secret
	return &unsealed, nil
}
