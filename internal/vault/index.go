package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/cryptox"
	"github.com/dmitrijs2005/photovault/internal/filex"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

// Index is the encrypted catalog of vault items. The whole item list is one
// AEAD-sealed JSON document: every save re-seals and atomically replaces it,
// so the on-disk catalog is always a single consistent ciphertext unit.
type Index struct {
	dir    string
	engine *cryptox.Engine
	log    logging.Logger
	now    func() time.Time
}

func NewIndex(dir string, engine *cryptox.Engine, log logging.Logger) *Index {
	return &Index{dir: dir, engine: engine, log: log, now: time.Now}
}

func (ix *Index) metadataPath() string { return filepath.Join(ix.dir, metadataFileName) }
func (ix *Index) indexPath() string    { return filepath.Join(ix.dir, indexFileName) }

// Load reads and decrypts the catalog, running schema migrations when the
// persisted version is older than SchemaVersion. A missing index file means
// an empty vault; a present-but-undecryptable one is common.ErrIndexCorrupted
// and is never papered over with an empty catalog.
func (ix *Index) Load(ctx context.Context) ([]Item, error) {
	meta, err := ix.loadOrInitMetadata()
	if err != nil {
		return nil, err
	}
	if meta.SchemaVersion > SchemaVersion {
		return nil, fmt.Errorf("catalog schema %d is newer than supported %d (written by %s)",
			meta.SchemaVersion, SchemaVersion, meta.WriterVersion)
	}

	sealed, err := os.ReadFile(ix.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := ix.touchMetadata(meta); err != nil {
				return nil, err
			}
			return nil, nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	plaintext, err := ix.engine.Open(ctx, sealed)
	if err != nil {
		if errors.Is(err, common.ErrTamperOrCorruption) {
			return nil, fmt.Errorf("%w: %w", common.ErrIndexCorrupted, err)
		}
		return nil, err
	}

	if meta.SchemaVersion < SchemaVersion {
		ix.log.Info(ctx, "migrating catalog", "from", meta.SchemaVersion, "to", SchemaVersion)
		plaintext, err = migrate(meta.SchemaVersion, plaintext)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrIndexCorrupted, err)
		}
	}

	var items []Item
	if err := json.Unmarshal(plaintext, &items); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrIndexCorrupted, err)
	}

	if meta.SchemaVersion < SchemaVersion {
		// Persist the migrated catalog so the next load starts current.
		if err := ix.Save(ctx, items); err != nil {
			return nil, err
		}
	} else if err := ix.touchMetadata(meta); err != nil {
		return nil, err
	}
	return items, nil
}

// Save seals the full item list and atomically replaces the index file, then
// rewrites the catalog metadata with the current schema version.
func (ix *Index) Save(ctx context.Context, items []Item) error {
	if items == nil {
		items = []Item{}
	}
	plaintext, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	sealed, err := ix.engine.Seal(ctx, plaintext)
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(ix.indexPath(), sealed, 0o600); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	meta, err := ix.loadOrInitMetadata()
	if err != nil {
		return err
	}
	meta.SchemaVersion = SchemaVersion
	return ix.touchMetadata(meta)
}

// Destroy removes the index and metadata files. Missing files are fine.
func (ix *Index) Destroy() error {
	for _, p := range []string{ix.indexPath(), ix.metadataPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// loadOrInitMetadata reads metadata.json, creating it on first vault use.
func (ix *Index) loadOrInitMetadata() (CatalogMetadata, error) {
	raw, err := os.ReadFile(ix.metadataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			now := ix.now().UTC()
			return CatalogMetadata{
				SchemaVersion:  SchemaVersion,
				CreatedAt:      now,
				LastAccessedAt: now,
				WriterVersion:  WriterVersion,
			}, nil
		}
		return CatalogMetadata{}, fmt.Errorf("read catalog metadata: %w", err)
	}

	var meta CatalogMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return CatalogMetadata{}, fmt.Errorf("%w: bad catalog metadata: %w", common.ErrIndexCorrupted, err)
	}
	return meta, nil
}

// touchMetadata rewrites metadata.json with a fresh access timestamp.
func (ix *Index) touchMetadata(meta CatalogMetadata) error {
	meta.LastAccessedAt = ix.now().UTC()
	meta.WriterVersion = WriterVersion

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog metadata: %w", err)
	}
	if err := filex.WriteFileAtomic(ix.metadataPath(), raw, 0o600); err != nil {
		return fmt.Errorf("write catalog metadata: %w", err)
	}
	return nil
}
