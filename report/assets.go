package report

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Assets installs the static files (stylesheets, scripts, images) the report
// pages refer to.
type Assets interface {
	Install(home string) error
}

// NoAssets installs nothing. The pages still render, unstyled.
type NoAssets struct{}

func (NoAssets) Install(string) error { return nil }

// DirAssets copies the tree rooted at the named directory into the report home.
type DirAssets string

func (d DirAssets) Install(home string) error {
	src := string(d)
	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(home, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	return os.WriteFile(dst, data, filePerm)
}
