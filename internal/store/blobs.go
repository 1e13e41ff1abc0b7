// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidKey = errors.New("invalid object key")
	ErrNotFound   = errors.New("object not found")
)

// Blobs is a directory-backed object store. Keys are slash separated
// relative paths; they can never escape the root directory.
type Blobs struct {
	root *os.Root
}

// OpenBlobs opens the store rooted at dir, creating the directory.
func OpenBlobs(dir string) (*Blobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket dir: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open bucket dir: %w", err)
	}
	return &Blobs{root: root}, nil
}

// CleanKey validates key and returns its canonical form.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || strings.ContainsRune(key, '\\') || path.Clean(key) != key {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return key, nil
}

// Put writes data under key, replacing any existing object.
func (b *Blobs) Put(key string, data []byte) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	name := filepath.FromSlash(key)
	if dir := filepath.Dir(name); dir != "." {
		if err := b.root.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	if err := b.root.WriteFile(name, data, 0o644); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Open returns the object stored under key. The caller closes the file.
func (b *Blobs) Open(key string) (*os.File, fs.FileInfo, error) {
	key, err := CleanKey(key)
	if err != nil {
		return nil, nil, err
	}
	f, err := b.root.Open(filepath.FromSlash(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, info, nil
}

func (b *Blobs) Close() error {
	return b.root.Close()
}
