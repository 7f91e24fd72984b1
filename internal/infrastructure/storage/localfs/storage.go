// Package localfs is the blob store. Files live under a base directory
// and are reachable through HMAC-signed, time-bounded URLs served by
// the API's /files endpoint; the signature covers key and expiry so a
// leaked URL stops working when it lapses.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Storage struct {
	basePath string
	signer   *Signer
}

func New(basePath, publicBaseURL, signingSecret string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	signer, err := NewSigner(publicBaseURL, signingSecret)
	if err != nil {
		return nil, err
	}
	return &Storage{basePath: basePath, signer: signer}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// SignedURL issues a time-bounded read URL; the TTL must outlive the
// expected extraction duration.
func (s *Storage) SignedURL(key string, ttl time.Duration) (string, error) {
	return s.signer.SignedURL(key, time.Now().Add(ttl))
}

// Verify checks a presented signature against key and expiry.
func (s *Storage) Verify(key string, expires int64, signature string) error {
	return s.signer.Verify(key, expires, signature)
}

// resolve rejects keys that escape the base directory.
func (s *Storage) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.basePath, cleaned), nil
}
