//go:build !unix

package vault

const minFreeSlack = 8 << 20

// checkFreeSpace is a no-op where Statfs is unavailable; the write itself
// will surface the failure.
func checkFreeSpace(dir string, need uint64) error {
	return nil
}
