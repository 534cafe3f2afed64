package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// publicPrefix is the URL path images are served under; main mounts the
// static route at the same prefix.
const publicPrefix = "/images/"

// DiskStore keeps images on the local filesystem and serves them through
// the server's static file route. URLs embed baseURL so the links pasted
// into chat popups stay valid from anywhere.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Dir returns the backing directory, for mounting the static route.
func (s *DiskStore) Dir() string {
	return s.dir
}

func (s *DiskStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	// Callers pass generated names, but flatten anyway so nothing can
	// escape the image directory.
	name = filepath.Base(name)

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}

	return s.baseURL + publicPrefix + name, nil
}

func (s *DiskStore) Remove(ctx context.Context, url string) error {
	idx := strings.LastIndex(url, publicPrefix)
	if idx < 0 {
		return nil
	}
	name := filepath.Base(url[idx+len(publicPrefix):])
	if name == "." || name == "/" || name == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image file: %w", err)
	}
	return nil
}
