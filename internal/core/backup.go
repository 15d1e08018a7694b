package core

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// CreateBackup copies every file into a fresh timestamped directory inside
// the vault, preserving relative paths, file mode and mtime. Any failure
// aborts the backup immediately; callers treat that as fatal for the run
// since no vault file may be mutated without a complete backup.
func CreateBackup(vaultPath string, files []string, logger *zap.Logger) (string, error) {
	dir := filepath.Join(vaultPath, backupDirMarker+"_"+time.Now().Format("20060102_150405"))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", err
	}
	logger.Info("creating backup", zap.String("dir", dir), zap.Int("files", len(files)))
	for _, rel := range files {
		src := filepath.Join(vaultPath, rel)
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return "", err
		}
		if err := copyFilePreserve(src, dst); err != nil {
			return "", fmt.Errorf("backup %s: %w", rel, err)
		}
	}
	logger.Info("backup created", zap.String("dir", dir))
	return dir, nil
}

// copyFilePreserve copies src to dst keeping mode and mtime.
func copyFilePreserve(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
