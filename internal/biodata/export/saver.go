package export

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Saver writes exported files atomically into a directory
type Saver struct {
	fs  afero.Fs
	dir string
}

// NewSaver creates a saver writing into dir on fs
func NewSaver(fs afero.Fs, dir string) *Saver {
	return &Saver{fs: fs, dir: dir}
}

// Dir returns the output directory
func (s *Saver) Dir() string {
	return s.dir
}

// Fs returns the filesystem the saver writes to
func (s *Saver) Fs() afero.Fs {
	return s.fs
}

// Save writes data to dir/name through a temporary file and a rename, so a
// failed save leaves nothing behind
func (s *Saver) Save(name string, data []byte) (string, error) {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, ".biodata-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return "", err
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(fmt.Errorf("writing %s: %w", name, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing %s: %w", name, err))
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("closing %s: %w", name, err)
	}

	final := filepath.Join(s.dir, name)
	if err := s.fs.Rename(tmpName, final); err != nil {
		_ = s.fs.Remove(tmpName)
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	return final, nil
}
