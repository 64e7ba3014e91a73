// Package storage places rendered trip reports on disk.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"nemt/internal/domain"
	"nemt/internal/utils"
)

// ReportPath returns the slash-separated path stored on the report:
// reports/<MonthName>/<MM-dd-yyyy>/<tripId>_tripreport.pdf, dated by submission.
func ReportPath(submittedAt time.Time, tripID int64) string {
	local := submittedAt.In(time.Local)
	return path.Join(
		"reports",
		local.Month().String(),
		utils.FormatReportDate(local),
		fmt.Sprintf("%d_tripreport.pdf", tripID),
	)
}

// ReportFiles resolves stored report paths against a root directory.
type ReportFiles struct {
	Root string
}

func (f ReportFiles) Abs(rel string) string {
	root := f.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, filepath.FromSlash(rel))
}

func (f ReportFiles) Exists(rel string) bool {
	info, err := os.Stat(f.Abs(rel))
	return err == nil && !info.IsDir()
}

// Write creates missing directories and replaces the file atomically, so a
// reader never sees a half-written PDF.
func (f ReportFiles) Write(rel string, data []byte) error {
	dst := f.Abs(rel)
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tripreport-*.tmp")
	if err != nil {
		return domain.StorageError{Op: "create", Path: dst, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func(op string, err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return domain.StorageError{Op: op, Path: dst, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup("sync", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return domain.StorageError{Op: "close", Path: dst, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return domain.StorageError{Op: "chmod", Path: dst, Err: err}
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return domain.StorageError{Op: "rename", Path: dst, Err: err}
	}
	return nil
}

func (f ReportFiles) Read(rel string) ([]byte, error) {
	data, err := os.ReadFile(f.Abs(rel))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.NotFoundError{Resource: "report file", Err: err}
	}
	if err != nil {
		return nil, domain.StorageError{Op: "read", Path: rel, Err: err}
	}
	return data, nil
}
