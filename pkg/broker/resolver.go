package broker

import (
	"fmt"
	"strings"

	"github.com/containerd/errdefs"

	"github.com/cuemby/holt/pkg/types"
)

// MatchTerms resolves a slash-separated search term such as
// "alice/photos/2024/sep.jpg" to a workspace and the path inside it. The
// first part is tried as a username, the next as the workspace name; when
// the username guess finds a user but no workspace under them, the term
// is retried as a bare workspace name. Ambiguity is a hard error, not a
// tie-break. No match at all returns (nil, "") without error.
func (b *Broker) MatchTerms(requester *types.User, term string) (*types.WorkspaceOut, string, error) {
	allParts := splitTerm(term)
	if len(allParts) == 0 {
		return nil, "", nil
	}

	parts := allParts
	ownerID := ""
	if len(parts) >= 2 {
		if owner, err := b.store.GetUserByUsername(parts[0]); err == nil {
			ownerID = owner.ID
			parts = parts[1:]
		} else if !errdefs.IsNotFound(err) {
			return nil, "", err
		}
	}

	ws, err := b.matchWorkspace(requester, parts[0], ownerID)
	if err != nil {
		return nil, "", err
	}
	if ws != nil {
		return ws, strings.Join(parts[1:], "/"), nil
	}

	if ownerID != "" {
		// The username guess consumed a part but led nowhere; maybe
		// it was a workspace name all along.
		ws, err = b.matchWorkspace(requester, allParts[0], "")
		if err != nil {
			return nil, "", err
		}
		if ws != nil {
			return ws, strings.Join(allParts[1:], "/"), nil
		}
	}
	return nil, "", nil
}

// matchWorkspace finds the single visible workspace with the given name,
// optionally narrowed by owner. More than one match is an error, zero is
// (nil, nil).
func (b *Broker) matchWorkspace(requester *types.User, name, ownerID string) (*types.WorkspaceOut, error) {
	matches, err := b.WorkspaceSearch(requester, WorkspaceSearchOptions{Name: name, OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("multiple workspace matches for %s: %w", name, errdefs.ErrInvalidArgument)
	}
}

// splitTerm breaks a term on slashes, dropping empty parts.
func splitTerm(term string) []string {
	var parts []string
	for _, part := range strings.Split(term, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
