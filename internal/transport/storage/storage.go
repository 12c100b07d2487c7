// Package storage downloads user images from object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	storagego "github.com/supabase-community/storage-go"

	"github.com/kailas-cloud/skinlab/internal/domain"
	"github.com/kailas-cloud/skinlab/internal/domain/request"
)

// DefaultMaxObjectBytes caps a single downloaded image.
const DefaultMaxObjectBytes = 20 << 20

// HTTPConfig holds settings for a Supabase-style storage REST endpoint.
type HTTPConfig struct {
	// BaseURL is the storage API root, e.g. https://<project>.supabase.co/storage/v1.
	BaseURL    string
	Bucket     string
	ServiceKey string
	MaxBytes   int64
}

// HTTPStore fetches objects via GET {base}/object/{bucket}/{path}.
type HTTPStore struct {
	client   *storagego.Client
	bucket   string
	maxBytes int64
}

// NewHTTPStore creates a REST-backed image store.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("storage base url is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse storage base url: %w", err)
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}
	return &HTTPStore{
		client:   storagego.NewClient(base, cfg.ServiceKey, map[string]string{"apikey": cfg.ServiceKey}),
		bucket:   cfg.Bucket,
		maxBytes: maxBytes,
	}, nil
}

type download struct {
	data []byte
	err  error
}

// Download returns the object bytes at path. The storage client takes no
// context, so a cancelled ctx abandons the transfer instead of aborting it.
func (s *HTTPStore) Download(ctx context.Context, path string) ([]byte, error) {
	if err := request.ValidateImagePath(path); err != nil {
		return nil, err
	}

	done := make(chan download, 1)
	go func() {
		data, err := s.client.DownloadFile(s.bucket, path)
		done <- download{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("download %s: %w", path, ctx.Err())
	case d := <-done:
		if d.err != nil {
			return nil, fmt.Errorf("download %s: %v: %w", path, d.err, domain.ErrStorage)
		}
		return checkObject(d.data, s.maxBytes, path)
	}
}

// FSStore reads objects from a local directory.
type FSStore struct {
	root     string
	maxBytes int64
}

// NewFSStore creates a filesystem-backed image store rooted at root.
func NewFSStore(root string, maxBytes int64) (*FSStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxObjectBytes
	}
	return &FSStore{root: abs, maxBytes: maxBytes}, nil
}

// Download returns the file bytes at root/path.
func (s *FSStore) Download(_ context.Context, path string) ([]byte, error) {
	if err := request.ValidateImagePath(path); err != nil {
		return nil, err
	}

	full := filepath.Join(s.root, filepath.FromSlash(path))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return nil, domain.NewValidationError("image_paths", "path %q escapes storage root", path)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, domain.ErrStorage)
	}
	defer f.Close()

	return readBounded(f, s.maxBytes, path)
}

func readBounded(r io.Reader, maxBytes int64, path string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", path, err, domain.ErrStorage)
	}
	return checkObject(data, maxBytes, path)
}

func checkObject(data []byte, maxBytes int64, path string) ([]byte, error) {
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("object %s exceeds %d bytes: %w", path, maxBytes, domain.ErrStorage)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("object %s is empty: %w", path, domain.ErrStorage)
	}
	return data, nil
}
