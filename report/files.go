package report

import (
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

const filePerm = 0o644

// rewriteFile replaces path with data in one step: readers and a crash mid-write
// see either the previous or the new content, never a truncated file.
func rewriteFile(path string, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomicwriter.WriteFile(path, []byte(data), filePerm)
}

// touchFile creates an empty file unless one already exists.
func touchFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	return f.Close()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
