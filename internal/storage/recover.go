package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hashicorp/go-multierror"
)

// RecoveryReport summarizes what Recover repaired.
type RecoveryReport struct {
	TempFilesRemoved  int `json:"temp_files_removed"`
	DuplicatesRemoved int `json:"duplicates_removed"`
}

// Recover repairs the storage directory after a crash.
//
// It removes temporary files of interrupted writes and, for ids stored in both
// encodings, the plain copy. It must run before the store serves requests.
func (s *FileStore) Recover(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport
	var result *multierror.Error

	tmps, err := s.fs.ListFiles(s.dir, ".*"+tmpSuffix)
	if err != nil {
		return report, fmt.Errorf("failed to list temp files: %w", err)
	}
	for _, p := range tmps {
		if err := s.fs.Delete(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
			continue
		}
		report.TempFilesRemoved++
	}

	plains, err := s.fs.ListFiles(s.dir, "*"+plainExt)
	if err != nil {
		return report, fmt.Errorf("failed to list documents: %w", err)
	}
	for _, p := range plains {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id, err := idFromPath(p, Plain)
		if err != nil {
			continue
		}
		ok, err := s.fs.Exists(s.path(id, Compressed))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if !ok {
			continue
		}
		if err := s.fs.Delete(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			result = multierror.Append(result, err)
			continue
		}
		report.DuplicatesRemoved++
		s.log.WarnContext(ctx, "removed duplicate plain copy", "id", id)
	}

	if report.TempFilesRemoved > 0 || report.DuplicatesRemoved > 0 {
		s.log.InfoContext(ctx, "storage recovered", "tempFiles", report.TempFilesRemoved, "duplicates", report.DuplicatesRemoved)
	}
	return report, result.ErrorOrNil()
}
