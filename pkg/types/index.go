package types

import "time"

// IndexDocument is one object's search record. It is a union of every
// per-object field the system knows how to fill: crawlers and the event
// handler supply the object fields, and the server stamps the denormalized
// workspace, owner, root, and node fields before the document reaches the
// search engine.
type IndexDocument struct {
	// Time is the object's last modification. Creation time is not
	// available through S3 listings.
	Time time.Time `json:"time"`
	Size int64     `json:"size,omitempty"`
	ETag string    `json:"eTag,omitempty"`
	// Path is the inner path starting at the workspace boundary.
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Extension   string `json:"extension"`
	ContentType string `json:"content_type,omitempty"`
	// Text holds the plaintext contents when the object is UTF-8
	// decodable, feeding the type-ahead search field.
	Text string `json:"text,omitempty"`
	Tag  string `json:"tag,omitempty"`

	// Video metadata, passed through from probe output when present.
	CodecTagString string  `json:"codec_tag_string,omitempty"`
	Width          float64 `json:"width,omitempty"`
	Height         float64 `json:"height,omitempty"`
	RFrameRate     string  `json:"r_frame_rate,omitempty"`
	BitRate        float64 `json:"bit_rate,omitempty"`
	DurationTS     float64 `json:"duration_ts,omitempty"`
	DurationSec    float64 `json:"duration_sec,omitempty"`
	FormatName     string  `json:"format_name,omitempty"`

	// Server-assigned fields. Clients may leave these empty; the ingest
	// paths overwrite them unconditionally.
	WorkspaceID       string   `json:"workspace_id,omitempty"`
	WorkspaceName     string   `json:"workspace_name,omitempty"`
	OwnerID           string   `json:"owner_id,omitempty"`
	OwnerName         string   `json:"owner_name,omitempty"`
	Bucket            string   `json:"bucket,omitempty"`
	Server            string   `json:"server,omitempty"`
	RootPath          string   `json:"root_path,omitempty"`
	WorkspaceBasePath string   `json:"workspace_base_path,omitempty"`
	LastSeenCrawlID   string   `json:"last_seen_crawl_id,omitempty"`
	RootID            string   `json:"root_id,omitempty"`
	UserShares        []string `json:"user_shares,omitempty"`
}

// BulkIndexRequest carries one crawl batch for a workspace. LastIndexedKey
// is the crawler's resume marker; when empty the server falls back to the
// last document's path. Succeeded closes the round.
type BulkIndexRequest struct {
	Documents      []IndexDocument `json:"documents"`
	LastIndexedKey string          `json:"last_indexed_key,omitempty"`
	Succeeded      bool            `json:"succeeded,omitempty"`
}

// BulkIndexResponse reports the round state after one batch
type BulkIndexResponse struct {
	Round *CrawlRound `json:"round"`
	Count int         `json:"count"`
}

// SearchRequest is a type-ahead query over indexed objects
type SearchRequest struct {
	Q string `json:"q"`
}
