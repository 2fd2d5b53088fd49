/*
Package security provides cryptographic primitives for the Holt broker.

This package implements two capabilities: sealing of operator credentials
at rest using AES-256-GCM, and generation plus constant-time verification
of API key credential pairs. Everything sensitive the broker persists or
compares passes through here.

# Architecture

	┌──────────────────────────────────────────────────┐
	│               Security Primitives                 │
	└───────────┬──────────────────────┬────────────────┘
	            │                      │
	            ▼                      ▼
	     ┌─────────────┐        ┌──────────────┐
	     │    Vault    │        │   API Keys   │
	     │ AES-256-GCM │        │ SHA-256 hash │
	     └──────┬──────┘        └──────┬───────┘
	            │                      │
	            ▼                      ▼
	   node secret keys         constant-time verify
	   sealed in the store      via crypto/subtle

# Vault

The Vault seals storage node secret access keys before they reach the
store, so a copied database file does not leak operator credentials:

	vaultKey = SHA-256(deployment secret)  // 32 bytes for AES-256

Ciphertexts carry their random nonce as a prefix and an authentication
tag, so tampering is detected on open. SealString/OpenString wrap the
raw byte API with base64 for values embedded in JSON documents.

The deployment secret comes from configuration (wio_secret) and is held
only in memory; rotating it invalidates sealed credentials, which must
then be re-registered.

# API Keys

GenerateAPIKey produces a credential pair:

  - key ID: 16 random bytes, hex encoded, public and indexable
  - secret: 32 random bytes, base64url encoded, shown exactly once

Only HashAPIKeySecret(secret) is persisted. VerifyAPIKeySecret compares
digests with crypto/subtle so verification time does not depend on where
the candidate diverges.

# Usage

Sealing node credentials:

	vault, err := security.NewVaultFromSecret(cfg.Secret)
	sealed, err := vault.SealString(req.SecretAccessKey)
	// store sealed; later:
	plaintext, err := vault.OpenString(node.SecretAccessKey)

Issuing an API key:

	keyID, secret, err := security.GenerateAPIKey()
	key := &types.APIKey{KeyID: keyID, SecretHash: security.HashAPIKeySecret(secret)}
	// return secret to the caller once, persist key

# See Also

  - pkg/broker for credential handling during node registration
  - pkg/auth for API key authentication of requests
*/
package security
