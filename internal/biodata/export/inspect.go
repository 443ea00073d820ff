package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/afero"
)

// FileInfo describes an exported document on disk
type FileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Pages    int       `json:"pages"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Inspect reads an exported PDF back and reports its page count
func Inspect(fs afero.Fs, path string) (info FileInfo, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}

	// the reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			info = FileInfo{}
			err = fmt.Errorf("reading %s: %v", path, r)
		}
	}()

	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return FileInfo{}, fmt.Errorf("reading %s: %w", path, err)
	}

	return FileInfo{
		Name:     filepath.Base(path),
		Path:     path,
		Pages:    r.NumPage(),
		Size:     st.Size(),
		Modified: st.ModTime(),
	}, nil
}

// ListExports inspects every PDF in dir, newest first. Unreadable files are
// skipped.
func ListExports(fs afero.Fs, dir string) ([]FileInfo, error) {
	entries, err := afero.ReadDir(fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		info, err := Inspect(fs, filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}
