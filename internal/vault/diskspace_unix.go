//go:build unix

package vault

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/dmitrijs2005/photovault/internal/common"
)

// minFreeSlack keeps a floor of headroom beyond the write itself so the vault
// never fills the volume to the brim.
const minFreeSlack = 8 << 20

// checkFreeSpace fails with ErrInsufficientStorage before a write is
// attempted when the volume holding dir cannot take `need` more bytes.
func checkFreeSpace(dir string, need uint64) error {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < need {
		return fmt.Errorf("%w: need %d bytes, %d available", common.ErrInsufficientStorage, need, free)
	}
	return nil
}
