package index

// indexMapping is applied when the engine index is created. The field
// types matter: keyword fields back exact-match filters (visibility,
// extension facets), text fields are tokenized for matching, and text
// itself is search_as_you_type so partial queries hit.
const indexMapping = `{
  "mappings": {
    "properties": {
      "time": {"type": "date"},
      "size": {"type": "double"},
      "eTag": {"type": "text"},
      "extension": {"type": "keyword"},
      "content_type": {"type": "keyword"},
      "text": {"type": "search_as_you_type"},
      "tag": {"type": "keyword"},
      "workspace_id": {"type": "keyword"},
      "workspace_name": {"type": "keyword"},
      "owner_id": {"type": "keyword"},
      "owner_name": {"type": "keyword"},
      "bucket": {"type": "keyword"},
      "server": {"type": "keyword"},
      "root_path": {"type": "text"},
      "workspace_base_path": {"type": "text"},
      "last_seen_crawl_id": {"type": "keyword"},
      "root_id": {"type": "keyword"},
      "path": {"type": "text"},
      "filename": {"type": "text"},
      "user_shares": {"type": "keyword"},
      "codec_tag_string": {"type": "keyword"},
      "width": {"type": "double"},
      "height": {"type": "double"},
      "r_frame_rate": {"type": "keyword"},
      "bit_rate": {"type": "double"},
      "duration_ts": {"type": "double"},
      "duration_sec": {"type": "double"},
      "format_name": {"type": "keyword"}
    }
  }
}`
