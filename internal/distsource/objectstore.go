package distsource

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/repobuild/internal/ctxlog"
)

// completeMarker is written into a cache directory once extraction succeeded.
const completeMarker = ".repobuild-complete"

// ObjectStoreConfig configures an S3-compatible bucket of source tarballs.
type ObjectStoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
	UseSSL bool
	// CacheDir receives one extracted directory per id.
	CacheDir string
	// StripComponents drops leading path elements from archive entries,
	// like tar --strip-components.
	StripComponents int
}

// ObjectStore fetches "<prefix><id>.tar.gz" objects and extracts them into a
// local cache directory. Extracted sources are reused across runs.
type ObjectStore struct {
	client *minio.Client
	cfg    ObjectStoreConfig
}

// NewObjectStore validates cfg and creates the client. No request is made
// until the first Fetch.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required")
	}
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("object store cache directory is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store client: %w", err)
	}
	return &ObjectStore{client: client, cfg: cfg}, nil
}

// objectKey returns the key of the tarball for id.
func (s *ObjectStore) objectKey(id string) string {
	return s.cfg.Prefix + id + ".tar.gz"
}

// Fetch implements DistSource.
func (s *ObjectStore) Fetch(ctx context.Context, id string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	if err := validateID(id); err != nil {
		return "", &FetchError{ID: id, Err: err}
	}

	dest, err := filepath.Abs(filepath.Join(s.cfg.CacheDir, filepath.FromSlash(id)))
	if err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	if _, err := os.Stat(filepath.Join(dest, completeMarker)); err == nil {
		logger.Debug("Dist source already extracted.", "id", id, "dir", dest)
		return dest, nil
	}

	key := s.objectKey(id)
	logger.Info("Downloading dist source.", "bucket", s.cfg.Bucket, "key", key)
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	tmp, err := os.MkdirTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	defer os.RemoveAll(tmp)

	if err := Extract(obj, tmp, s.cfg.StripComponents); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NoSuchBucket" {
			return "", &FetchError{ID: id, Err: fmt.Errorf("object %s/%s not found", s.cfg.Bucket, key)}
		}
		return "", &FetchError{ID: id, Err: err}
	}
	if err := os.WriteFile(filepath.Join(tmp, completeMarker), nil, 0o644); err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	if err := os.RemoveAll(dest); err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	if err := os.Rename(tmp, dest); err != nil {
		return "", &FetchError{ID: id, Err: err}
	}
	logger.Debug("Dist source extracted.", "id", id, "dir", dest)
	return dest, nil
}

// Extract unpacks a gzip-compressed tar stream into dest. Entries that would
// land outside dest are rejected.
func Extract(r io.Reader, dest string, stripComponents int) error {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if !isLocal(hdr.Name) {
			return fmt.Errorf("archive entry %q escapes the destination", hdr.Name)
		}
		name, ok := stripPath(hdr.Name, stripComponents)
		if !ok {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if path.IsAbs(hdr.Linkname) || !isLocal(path.Join(path.Dir(name), hdr.Linkname)) {
				return fmt.Errorf("archive symlink %q points outside the destination", hdr.Name)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		}
	}
}

// stripPath drops the first n elements of name. It reports false when
// nothing is left.
func stripPath(name string, n int) (string, bool) {
	name = path.Clean(name)
	if name == "." {
		return "", false
	}
	parts := strings.Split(name, "/")
	if len(parts) <= n {
		return "", false
	}
	return strings.Join(parts[n:], "/"), true
}

func isLocal(name string) bool {
	clean := path.Clean(name)
	return clean != ".." && !strings.HasPrefix(clean, "../") && !path.IsAbs(clean)
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
