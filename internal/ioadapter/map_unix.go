//go:build unix

package ioadapter

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// maxMappableSize caps what fits in a Go int on this platform; a file
// larger than that can't be addressed as a single []byte slice.
const maxMappableSize = int64(^uint(0) >> 1)

// mapFile memory-maps path read-only and hands back the resulting byte
// slice along with a cleanup closure that unmaps it.
func mapFile(path string) ([]byte, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	// The descriptor is only needed long enough to create the mapping;
	// the mapped pages stay resident after it's closed.
	defer f.Close()

	size, err := fileSize(f)
	if err != nil {
		return nil, nil, err
	}
	if size == 0 {
		return []byte{}, noopUnmap, nil
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("ioadapter: mmap %s: %w", path, err)
	}
	return mapped, unmapper(mapped), nil
}

func fileSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := info.Size()
	if size > maxMappableSize {
		return 0, fmt.Errorf("ioadapter: file too large to map (%d bytes)", size)
	}
	return size, nil
}

func noopUnmap() error { return nil }

// unmapper builds the cleanup closure for a successful mapping. A second
// call after the region is already gone reports EINVAL from the kernel,
// which callers should be able to treat as success.
func unmapper(mapped []byte) func() error {
	return func() error {
		err := unix.Munmap(mapped)
		if errors.Is(err, unix.EINVAL) {
			return nil
		}
		return err
	}
}
