// Package keys derives object keys and record identifiers for workspaces.
//
// All placement decisions flow through WorkspaceKey: managed workspaces live
// under {root.base_path}/{owner}/{name}, unmanaged workspaces pin their own
// base path under the root. RecordPrimaryKey turns a fully qualified object
// location into the stable document ID used by the search index, so crawl
// ingest and bucket event ingest converge on the same record.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/containerd/errdefs"

	"github.com/cuemby/holt/pkg/types"
)

var nameRegexp = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateName rejects names that cannot appear as a single S3 path
// component. Applied to workspace, node, and user names at create time.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty: %w", errdefs.ErrInvalidArgument)
	}
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid name %q: only letters, digits, '.', '_' and '-' are allowed: %w", name, errdefs.ErrInvalidArgument)
	}
	return nil
}

// SanitizeUsername rewrites an externally supplied identity (typically the
// local part of an email) into a valid name by replacing every disallowed
// rune with '-'.
func SanitizeUsername(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// WorkspaceKey returns the object key prefix of a workspace inside its
// root's bucket, without leading or trailing slashes. Unmanaged workspaces
// use their own base path; managed workspaces derive the key from the
// owner's username and the workspace name.
func WorkspaceKey(root *types.WorkspaceRoot, ws *types.Workspace, ownerUsername string) string {
	var key string
	if ws.BasePath != "" {
		key = path.Join(root.BasePath, ws.BasePath)
	} else {
		key = path.Join(root.BasePath, ownerUsername, ws.Name)
	}
	return strings.Trim(key, "/")
}

// RecordPrimaryKey derives the search index document ID for one object.
// The ID is the last 16 hex characters of the SHA-256 over the node API
// URL, bucket, workspace prefix, and inner path, concatenated in that
// order with no delimiter. Identical locations always map to the same
// document, which makes ingest idempotent.
func RecordPrimaryKey(apiURL, bucket, workspacePrefix, innerPath string) string {
	sum := sha256.Sum256([]byte(apiURL + bucket + workspacePrefix + innerPath))
	h := hex.EncodeToString(sum[:])
	return h[len(h)-16:]
}
