package vault

import (
	"encoding/json"
	"fmt"
	"time"
)

// A migrationStep transforms a catalog document from one schema version to
// the next. Steps must be pure: same input, same output, no I/O. Fields a
// step does not know about must round-trip untouched, which is why each step
// only sets fields it introduces and leaves unknown ones to the JSON layer.
type migrationStep func(data []byte) ([]byte, error)

// migrations maps a schema version to the step that lifts it one version up.
var migrations = map[int]migrationStep{
	1: migrateV1toV2,
}

// migrate lifts a catalog document from schema version `from` to the current
// SchemaVersion by applying steps sequentially. Migrating an already-current
// document is a no-op.
func migrate(from int, data []byte) ([]byte, error) {
	for v := from; v < SchemaVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, fmt.Errorf("no migration from schema version %d", v)
		}
		migrated, err := step(data)
		if err != nil {
			return nil, fmt.Errorf("migrate schema %d to %d: %w", v, v+1, err)
		}
		data = migrated
	}
	return data, nil
}

// itemV1 is the schema-1 catalog record. Blob references were implicit
// (derived from the id) and there was no external source reference.
type itemV1 struct {
	ID                string    `json:"id"`
	OriginalTimestamp time.Time `json:"original_ts"`
	AddedTimestamp    time.Time `json:"added_ts"`
}

// migrateV1toV2 makes the blob references explicit and introduces the
// optional source_ref field (absent for all migrated records).
func migrateV1toV2(data []byte) ([]byte, error) {
	var old []itemV1
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, err
	}

	items := make([]Item, len(old))
	for i, o := range old {
		items[i] = Item{
			ID:                o.ID,
			OriginalTimestamp: o.OriginalTimestamp,
			AddedTimestamp:    o.AddedTimestamp,
			ContentRef:        o.ID + contentExt,
			ThumbnailRef:      o.ID + thumbnailExt,
		}
	}
	return json.Marshal(items)
}
