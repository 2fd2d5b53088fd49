/*
Package index maintains the object search index: per-root index records,
crawl round coordination, bucket event ingest, and the bulk payload
encoding shared by both.

# Architecture

Documents reach the engine on two paths that must agree on ids:

	  Pull (crawl)                        Push (bucket events)
	┌──────────────────────┐           ┌──────────────────────┐
	│ CrawlCreate          │           │ HandleEvents         │
	│   open/resume round  │           │   decode S3/MinIO    │
	│ BulkIndex            │           │   notification,      │
	│   decorate, account  │           │   locate workspace   │
	└──────────┬───────────┘           └──────────┬───────────┘
	           │       decorate + BulkWriter      │
	           └──────────────┬───────────────────┘
	                          ▼
	                 engine bulk endpoint

A crawler calls CrawlCreate to open or resume a crawl round, lists the
workspace itself using its own minted credentials, and posts batches to
BulkIndex. The object store pushes individual mutations as bucket event
notifications into HandleEvents. Both paths stamp the same denormalized
workspace fields and derive the document id from the node URL, bucket,
workspace prefix, and inner path, so an object ingested twice lands on
the same document and deletes always find it.

# Crawl Rounds

Crawl rounds serialize pull ingest per workspace. At most one round is
open at a time; reopening returns the in-flight round along with its
last indexed key, so interrupted crawls resume instead of restarting.
Batch accounting is written before the engine call; replaying a batch
after a failed engine write is safe because upserts are idempotent.

# Index Lifecycle

Indexing is enabled per root. All roots share the single "default"
engine index, created with the document mapping when the first root is
enabled and dropped when the last one is disabled. Visibility filters
for search ride on the owner_id and user_shares keyword fields, which
are baked into documents at ingest time.
*/
package index
