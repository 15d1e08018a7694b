package core

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// backupDirMarker tags backup directories created by CreateBackup; any
	// directory whose name contains it is excluded from traversal.
	backupDirMarker = "mdport_backup"

	obsidianDirName = ".obsidian"
)

// normalizePath cleans a vault-relative path: forward slashes, no leading "./".
func normalizePath(path string) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	return strings.TrimPrefix(clean, "./")
}

func isBackupDir(name string) bool {
	return strings.Contains(name, backupDirMarker)
}

// CollectMarkdownFiles returns all .md files under vaultPath as vault-relative
// slash paths. The data dir, the Obsidian config dir and backup directories
// are skipped; the vault root itself is never skipped regardless of its name.
func CollectMarkdownFiles(vaultPath string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(vaultPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == vaultPath {
				return nil
			}
			if d.Name() == dataDirName || d.Name() == obsidianDirName || isBackupDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			rel, err := filepath.Rel(vaultPath, path)
			if err != nil {
				return err
			}
			files = append(files, normalizePath(rel))
		}
		return nil
	})
	return files, err
}
