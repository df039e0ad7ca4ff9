package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backup file names inside the backup directory. They are fixed so the
// kiosk and the admin always find each other's files.
const (
	AutosaveFile    = "parking_autosave.json"
	AdminBackupFile = "parking_backup.json"

	filePermissions = 0o644
	tmpSuffix       = ".tmp"
)

// Paths resolves the two backup files under dir.
type Paths struct {
	Dir string
}

func (p Paths) Autosave() string { return filepath.Join(p.Dir, AutosaveFile) }
func (p Paths) Admin() string    { return filepath.Join(p.Dir, AdminBackupFile) }

// WriteFile writes data to path through a temp file and a rename, so a crash
// mid-write leaves the previous backup intact.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	tmp := path + tmpSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions)
	if err != nil {
		return fmt.Errorf("open temp backup: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp backup: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp backup: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp backup: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename backup: %w", err)
	}
	return nil
}
