package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// FileStore persists evidence documents and report attachments. The path it
// returns is opaque to callers and is only ever handed back to Open.
type FileStore interface {
	Save(ctx context.Context, folder, filename string, r io.Reader, contentType string) (string, error)
	Open(ctx context.Context, storedPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storedPath string) error
}

var (
	ErrInvalidStoredPath  = errors.New("invalid stored path")
	ErrStoredFileNotFound = errors.New("stored file not found")
)

// NewFileStore picks the backend from STORAGE_DRIVER ("local" or "gcs").
func NewFileStore(ctx context.Context) (FileStore, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_DRIVER"))) {
	case "gcs":
		return NewGCSFileStore(ctx, os.Getenv("GCS_BUCKET"))
	case "", "local":
		uploadPath := os.Getenv("UPLOAD_PATH")
		if uploadPath == "" {
			uploadPath = "./uploads"
		}
		return NewLocalFileStore(uploadPath), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", os.Getenv("STORAGE_DRIVER"))
	}
}

// objectKey builds folder/<uuid>_<name> so two uploads with the same
// original name never collide.
func objectKey(folder, filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	folder = strings.Trim(path.Clean("/"+filepath.ToSlash(folder)), "/")
	key := uuid.NewString() + "_" + name
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

// LocalFileStore writes under a root directory on disk.
type LocalFileStore struct {
	Root string
}

func NewLocalFileStore(root string) *LocalFileStore {
	return &LocalFileStore{Root: root}
}

func (s *LocalFileStore) resolve(storedPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(storedPath))
	if clean == "/" {
		return "", ErrInvalidStoredPath
	}
	return filepath.Join(s.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *LocalFileStore) Save(ctx context.Context, folder, filename string, r io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key := objectKey(folder, filename)
	fullPath, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(fullPath)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return key, nil
}

func (s *LocalFileStore) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.resolve(storedPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStoredFileNotFound, storedPath)
	}
	return f, err
}

func (s *LocalFileStore) Delete(ctx context.Context, storedPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(storedPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

// GCSFileStore writes objects into a Google Cloud Storage bucket.
type GCSFileStore struct {
	Bucket string
	client *storage.Client
}

// NewGCSFileStore prefers ADC (service account / GOOGLE_APPLICATION_CREDENTIALS);
// GCS_CREDENTIALS_JSON overrides it for local runs.
func NewGCSFileStore(ctx context.Context, bucket string) (*GCSFileStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}

	var opts []option.ClientOption
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSFileStore{Bucket: bucket, client: client}, nil
}

func (s *GCSFileStore) Save(ctx context.Context, folder, filename string, r io.Reader, contentType string) (string, error) {
	key := objectKey(folder, filename)
	wc := s.client.Bucket(s.Bucket).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("upload %s to gcs: %w", key, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("finalize %s in gcs: %w", key, err)
	}
	return key, nil
}

func (s *GCSFileStore) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	if strings.TrimSpace(storedPath) == "" {
		return nil, ErrInvalidStoredPath
	}
	rc, err := s.client.Bucket(s.Bucket).Object(storedPath).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrStoredFileNotFound, storedPath)
	}
	return rc, err
}

func (s *GCSFileStore) Delete(ctx context.Context, storedPath string) error {
	if strings.TrimSpace(storedPath) == "" {
		return ErrInvalidStoredPath
	}
	err := s.client.Bucket(s.Bucket).Object(storedPath).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s from gcs: %w", storedPath, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSFileStore) Close() error {
	return s.client.Close()
}
