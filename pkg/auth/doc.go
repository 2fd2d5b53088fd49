// Package auth implements request authentication for the broker API and
// the OIDC browser login flow.
//
// # Credential Forms
//
// Three credential forms are accepted, tried in order:
//
//  1. HTTP Basic auth carrying an API key pair (key id as the username,
//     secret as the password). This is what the CLI sends.
//  2. A bearer token. Tokens containing a colon are interpreted as
//     "key_id:secret" pairs, anything else as a session token.
//  3. The "session" cookie set after a completed browser login.
//
// API key secrets are verified against stored hashes in constant time and
// never logged. All verification failures collapse into a generic
// unauthenticated error so callers cannot probe which key ids exist.
//
// # Browser Login
//
// OIDCProvider drives the authorization code flow against an external
// identity provider. The well-known document and the provider's RSA
// signing keys are cached for an hour, and unknown key ids trigger a
// JWKS refetch so provider key rotation needs no broker restart. Verified
// id tokens must carry an email claim, which anchors user provisioning.
//
// Completed logins are converted into broker-signed HS256 session tokens
// so later requests never touch the identity provider.
package auth
