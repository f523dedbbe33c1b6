package storage

import (
	"errors"
	"io/fs"
	"path/filepath"
)

// Footprint returns the bytes on disk used by the database at dbPath,
// including its WAL and shared-memory files, plus the keyword index
// directory when keywordPath is set. Files that do not exist yet count as 0.
func Footprint(dbPath, keywordPath string) (int64, error) {
	var total int64
	paths := []string{dbPath, dbPath + "-wal", dbPath + "-shm"}
	if keywordPath != "" {
		paths = append(paths, keywordPath)
	}
	for _, p := range paths {
		n, err := sizeOf(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func sizeOf(path string) (int64, error) {
	var n int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		n += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return n, err
}
