package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/cryptox"
	"github.com/dmitrijs2005/photovault/internal/filex"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

// ErrStoreClosed is returned by data operations before Open or after Close.
var ErrStoreClosed = errors.New("vault store is not open")

// Options configures a Store.
type Options struct {
	// Dir is the vault root directory.
	Dir string

	// CacheMaxEntries / CacheMaxBytes bound the decrypted-thumbnail cache.
	CacheMaxEntries int
	CacheMaxBytes   int64

	// ThumbnailMaxDim bounds the longest side of generated thumbnails.
	ThumbnailMaxDim int
}

func (o *Options) applyDefaults() {
	if o.CacheMaxEntries <= 0 {
		o.CacheMaxEntries = 128
	}
	if o.CacheMaxBytes <= 0 {
		o.CacheMaxBytes = 32 << 20
	}
	if o.ThumbnailMaxDim <= 0 {
		o.ThumbnailMaxDim = defaultThumbnailMaxDim
	}
}

// AddRequest describes one photo to admit to the vault.
type AddRequest struct {
	Content           []byte
	OriginalTimestamp time.Time

	// SourceRef is an optional external identifier, advisory only: the store
	// records it for de-duplication queries but does not enforce uniqueness.
	SourceRef string
}

// AddResult is the per-item outcome of AddBatch.
type AddResult struct {
	Item Item
	Err  error
}

// Store orchestrates the encrypted blobs, the sealed index, and the
// thumbnail cache. Index mutations are serialized: at most one save is in
// flight at a time, always based on the freshest in-memory state. Reads run
// concurrently. Sealing and thumbnail generation happen off the mutation
// lock.
type Store struct {
	dir      string
	itemsDir string
	engine   *cryptox.Engine
	index    *Index
	cache    *thumbCache
	log      logging.Logger
	now      func() time.Time
	maxDim   int

	mu    sync.RWMutex
	items []Item
	open  bool
}

func NewStore(opts Options, engine *cryptox.Engine, log logging.Logger) (*Store, error) {
	opts.applyDefaults()
	if opts.Dir == "" {
		return nil, errors.New("vault directory is required")
	}

	cache, err := newThumbCache(opts.CacheMaxEntries, opts.CacheMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("create thumbnail cache: %w", err)
	}

	return &Store{
		dir:      opts.Dir,
		itemsDir: filepath.Join(opts.Dir, itemsDirName),
		engine:   engine,
		index:    NewIndex(opts.Dir, engine, log),
		cache:    cache,
		log:      log,
		now:      time.Now,
		maxDim:   opts.ThumbnailMaxDim,
	}, nil
}

// Open creates the on-disk layout if needed and loads the index into memory.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}

	if err := filex.EnsureDir(s.dir); err != nil {
		return err
	}
	if err := filex.EnsureDir(s.itemsDir); err != nil {
		return err
	}
	if err := s.writeBackupExclusionTag(); err != nil {
		return err
	}

	items, err := s.index.Load(ctx)
	if err != nil {
		return err
	}
	s.items = items
	s.open = true
	s.log.Info(ctx, "vault opened", "items", len(items), "dir", s.dir)
	return nil
}

// Close drops the in-memory index and purges the decrypted-thumbnail cache.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.open = false
	s.cache.Purge()
}

// AddItem admits one photo: generates an id, derives a bounded thumbnail,
// seals both blobs, writes them, and persists the extended index. If the
// blobs land but the index save fails, the operation fails and the orphaned
// blobs are left for a later SweepOrphans.
func (s *Store) AddItem(ctx context.Context, content []byte, originalTS time.Time, sourceRef string) (Item, error) {
	if err := s.ensureOpen(); err != nil {
		return Item{}, err
	}
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	// Sealed content + thumbnail roughly double the input; refuse up front
	// rather than fail halfway through the write.
	if err := checkFreeSpace(s.dir, uint64(len(content))*2+minFreeSlack); err != nil {
		return Item{}, err
	}

	thumb, err := makeThumbnail(content, s.maxDim)
	if err != nil {
		return Item{}, err
	}

	sealedContent, err := s.engine.Seal(ctx, content)
	if err != nil {
		return Item{}, err
	}
	sealedThumb, err := s.engine.Seal(ctx, thumb)
	if err != nil {
		return Item{}, err
	}

	item := Item{
		ID:                uuid.NewString(),
		OriginalTimestamp: originalTS,
		AddedTimestamp:    s.now().UTC(),
		SourceRef:         sourceRef,
	}
	item.ContentRef = item.ID + contentExt
	item.ThumbnailRef = item.ID + thumbnailExt

	if err := os.WriteFile(filepath.Join(s.itemsDir, item.ContentRef), sealedContent, 0o600); err != nil {
		return Item{}, fmt.Errorf("write content blob: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.itemsDir, item.ThumbnailRef), sealedThumb, 0o600); err != nil {
		return Item{}, fmt.Errorf("write thumbnail blob: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return Item{}, ErrStoreClosed
	}

	next := append(append([]Item(nil), s.items...), item)
	if err := s.index.Save(ctx, next); err != nil {
		// The blobs stay behind as recoverable orphans; the caller must not
		// treat the photo as vaulted.
		s.log.Error(ctx, "index save failed after blob write", "id", item.ID, "error", err)
		return Item{}, err
	}
	s.items = next
	s.cache.Add(item.ID, thumb)
	return item, nil
}

// AddBatch admits several photos, tracking success and failure per item.
// The returned error aggregates every per-item failure; items that failed
// must not be considered vaulted by the caller.
func (s *Store) AddBatch(ctx context.Context, reqs []AddRequest) ([]AddResult, error) {
	results := make([]AddResult, len(reqs))
	var errs error
	for i, req := range reqs {
		item, err := s.AddItem(ctx, req.Content, req.OriginalTimestamp, req.SourceRef)
		results[i] = AddResult{Item: item, Err: err}
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("item %d: %w", i, err))
		}
	}
	return results, errs
}

// GetContent returns the decrypted full-resolution photo.
func (s *Store) GetContent(ctx context.Context, id string) ([]byte, error) {
	item, err := s.findItem(id)
	if err != nil {
		return nil, err
	}
	return s.readBlob(ctx, item.ContentRef)
}

// GetThumbnail returns the decrypted thumbnail, consulting the cache first.
func (s *Store) GetThumbnail(ctx context.Context, id string) ([]byte, error) {
	item, err := s.findItem(id)
	if err != nil {
		return nil, err
	}
	if thumb, ok := s.cache.Get(id); ok {
		return thumb, nil
	}

	thumb, err := s.readBlob(ctx, item.ThumbnailRef)
	if err != nil {
		return nil, err
	}
	s.cache.Add(id, thumb)
	return thumb, nil
}

// DeleteItem removes the item from the catalog and its blobs from disk.
// Blob removal is best-effort: the persisted index is the source of truth
// for membership, so a missing blob never fails the delete.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrStoreClosed
	}

	idx := -1
	for i := range s.items {
		if s.items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return common.ErrItemNotFound
	}
	item := s.items[idx]

	next := append([]Item(nil), s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	if err := s.index.Save(ctx, next); err != nil {
		return err
	}
	s.items = next
	s.cache.Remove(id)

	for _, ref := range []string{item.ContentRef, item.ThumbnailRef} {
		if err := os.Remove(filepath.Join(s.itemsDir, ref)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn(ctx, "blob removal failed", "id", id, "ref", ref, "error", err)
		}
	}
	return nil
}

// ListItems returns a snapshot of the catalog. Metadata only, no decryption.
func (s *Store) ListItems(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, ErrStoreClosed
	}
	return append([]Item(nil), s.items...), nil
}

// ContainsSourceRef reports whether any item carries the given external
// reference. Advisory de-duplication only; uniqueness is not enforced.
func (s *Store) ContainsSourceRef(ctx context.Context, sourceRef string) (bool, error) {
	if sourceRef == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return false, ErrStoreClosed
	}
	for i := range s.items {
		if s.items[i].SourceRef == sourceRef {
			return true, nil
		}
	}
	return false, nil
}

// Statistics sums the on-disk sizes of every referenced blob. Recomputed on
// each call, never cached.
func (s *Store) Statistics(ctx context.Context) (Stats, error) {
	items, err := s.ListItems(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Count: len(items)}
	for _, item := range items {
		for _, ref := range []string{item.ContentRef, item.ThumbnailRef} {
			info, err := os.Stat(filepath.Join(s.itemsDir, ref))
			if err != nil {
				continue
			}
			stats.TotalBytes += info.Size()
		}
	}
	return stats, nil
}

// SweepOrphans deletes blobs on disk that no catalog entry references.
// Orphans are expected collateral of a failed AddItem and are never surfaced
// to callers; this reclaims their space. Returns the number removed.
func (s *Store) SweepOrphans(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, ErrStoreClosed
	}

	referenced := make(map[string]struct{}, len(s.items)*2)
	for _, item := range s.items {
		referenced[item.ContentRef] = struct{}{}
		referenced[item.ThumbnailRef] = struct{}{}
	}

	entries, err := os.ReadDir(s.itemsDir)
	if err != nil {
		return 0, fmt.Errorf("read items dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := referenced[entry.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.itemsDir, entry.Name())); err != nil {
			s.log.Warn(ctx, "orphan removal failed", "name", entry.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Info(ctx, "orphan sweep complete", "removed", removed)
	}
	return removed, nil
}

// DestroyVault removes every blob, the index, the metadata file, and the
// cache. It deliberately does not touch the encryption key: key destruction
// is a separate explicit operation at the crypto layer, since the two are
// independently dangerous.
func (s *Store) DestroyVault(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrStoreClosed
	}

	if err := os.RemoveAll(s.itemsDir); err != nil {
		return fmt.Errorf("remove items dir: %w", err)
	}
	if err := s.index.Destroy(); err != nil {
		return err
	}
	s.items = nil
	s.cache.Purge()

	// Leave the store usable as a fresh, empty vault.
	if err := filex.EnsureDir(s.itemsDir); err != nil {
		return err
	}
	s.log.Warn(ctx, "vault destroyed", "dir", s.dir)
	return nil
}

// writeBackupExclusionTag drops a CACHEDIR.TAG marker in the vault root so
// backup tools honoring the cache-directory convention skip the whole vault.
// Vault contents must never land in generic device or cloud backups.
func (s *Store) writeBackupExclusionTag() error {
	path := filepath.Join(s.dir, "CACHEDIR.TAG")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	tag := "Signature: 8a477f597d28d172789f06886806bc55\n# This directory holds an encrypted photo vault and must not be backed up.\n"
	if err := os.WriteFile(path, []byte(tag), 0o600); err != nil {
		return fmt.Errorf("write backup exclusion tag: %w", err)
	}
	return nil
}

func (s *Store) ensureOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return ErrStoreClosed
	}
	return nil
}

func (s *Store) findItem(id string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return Item{}, ErrStoreClosed
	}
	for i := range s.items {
		if s.items[i].ID == id {
			return s.items[i], nil
		}
	}
	return Item{}, common.ErrItemNotFound
}

// readBlob reads and opens a sealed blob. A blob referenced by the index but
// absent from disk is data loss, not "never existed", so it surfaces as
// ErrTamperOrCorruption rather than ErrItemNotFound.
func (s *Store) readBlob(ctx context.Context, ref string) ([]byte, error) {
	sealed, err := os.ReadFile(filepath.Join(s.itemsDir, ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: blob %s missing from disk", common.ErrTamperOrCorruption, ref)
		}
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return s.engine.Open(ctx, sealed)
}
