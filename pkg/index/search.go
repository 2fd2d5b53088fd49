package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/containerd/errdefs"

	"github.com/cuemby/holt/pkg/types"
)

// Search runs a type-ahead query over indexed objects and returns the
// engine's response verbatim. Results are restricted to documents the
// requester owns or can reach through a share; shares are baked into
// documents at ingest time, so visibility trails the share table until
// the next crawl or event touches an object.
func (ix *Indexer) Search(ctx context.Context, requester *types.User, query string) (json.RawMessage, error) {
	if err := ix.ready(); err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  query,
							"type":   "bool_prefix",
							"fields": []string{"text", "text._2gram", "text._3gram", "path", "filename"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"bool": map[string]interface{}{
							"should": []interface{}{
								map[string]interface{}{"term": map[string]interface{}{"owner_id": requester.ID}},
								map[string]interface{}{"term": map[string]interface{}{"user_shares": requester.ID}},
							},
							"minimum_should_match": 1,
						},
					},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(string(types.IndexTypeDefault)),
		ix.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %v: %w", err, errdefs.ErrUnavailable)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s: %w", res.Status(), errdefs.ErrUnavailable)
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	return json.RawMessage(raw), nil
}
