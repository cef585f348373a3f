package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalCAS stores blob bytes in a local content-addressed tree.
type LocalCAS struct {
	root string
}

// NewLocalCAS creates a local CAS rooted at root.
func NewLocalCAS(root string) (*LocalCAS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("local cas root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, "tmp"), 0o755); err != nil {
		return nil, err
	}
	return &LocalCAS{root: abs}, nil
}

// Put spools bytes into the tree's tmp dir and moves them under their digest.
func (c *LocalCAS) Put(ctx context.Context, r io.Reader, _ PutOptions) (BlobPutResult, error) {
	var zero BlobPutResult
	if c == nil {
		return zero, fmt.Errorf("blob store is not configured")
	}

	sp, err := spool(ctx, filepath.Join(c.root, "tmp"), r)
	if err != nil {
		return zero, err
	}
	if err := sp.file.Close(); err != nil {
		sp.discard()
		return zero, err
	}

	dst := filepath.Join(c.root, filepath.FromSlash(sp.key()))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		sp.discard()
		return zero, err
	}

	if _, err := os.Stat(dst); err == nil {
		_ = os.Remove(sp.path)
		return sp.result(), nil
	} else if !errors.Is(err, os.ErrNotExist) {
		sp.discard()
		return zero, err
	}

	if err := os.Rename(sp.path, dst); err != nil {
		if _, statErr := os.Stat(dst); statErr == nil {
			_ = os.Remove(sp.path)
			return sp.result(), nil
		}
		sp.discard()
		return zero, err
	}

	return sp.result(), nil
}

// Open returns a reader for blob key content.
func (c *LocalCAS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if c == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

// Delete removes a blob object. Missing files are ignored.
func (c *LocalCAS) Delete(ctx context.Context, key string) error {
	if c == nil {
		return fmt.Errorf("blob store is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := c.pathFromKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *LocalCAS) pathFromKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("blob key must be relative")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || strings.Contains(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key")
	}
	return filepath.Join(c.root, clean), nil
}
