// Package vault implements the encrypted photo vault: the sealed catalog
// with schema migration, blob storage, the bounded thumbnail cache, and the
// access-session façade gating everything behind unlock state.
package vault

import "time"

const (
	// SchemaVersion is the catalog schema written by this build.
	SchemaVersion = 2

	// WriterVersion identifies the software that last wrote the catalog,
	// recorded for diagnostics only.
	WriterVersion = "photovault/1.2.0"

	metadataFileName = "metadata.json"
	indexFileName    = "index.encrypted"
	itemsDirName     = "items"

	contentExt   = ".encrypted"
	thumbnailExt = ".thumb.encrypted"
)

// Item is a catalog entry for one vaulted photo. It is persisted only inside
// the encrypted index; the two referenced blobs live next to it on disk.
type Item struct {
	// ID is the opaque unique identifier, also the filename stem of the
	// item's two blobs. Immutable after creation.
	ID string `json:"id"`

	// OriginalTimestamp is the best-effort capture time supplied by the caller.
	OriginalTimestamp time.Time `json:"original_ts"`

	// AddedTimestamp is when the item was admitted to the vault. Set by the
	// store, never by the caller.
	AddedTimestamp time.Time `json:"added_ts"`

	// ContentRef and ThumbnailRef are the filenames of the sealed blobs,
	// relative to the items directory.
	ContentRef   string `json:"content_ref"`
	ThumbnailRef string `json:"thumbnail_ref"`

	// SourceRef optionally records an external identifier for advisory
	// de-duplication. Not required to be unique.
	SourceRef string `json:"source_ref,omitempty"`
}

// CatalogMetadata is persisted unencrypted alongside the index; it carries no
// sensitive data.
type CatalogMetadata struct {
	SchemaVersion  int       `json:"schema_version"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	WriterVersion  string    `json:"writer_version"`
}

// Stats summarizes the vault contents, recomputed from disk on every call.
type Stats struct {
	Count      int
	TotalBytes int64
}
