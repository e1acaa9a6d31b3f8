package snapshot

// Package snapshot provides persistence adapters for session snapshots and
// refresh tokens. The file adapter is for single-node deployments; the redis
// adapter is for production use behind multiple gateway replicas.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	domainauth "github.com/repairlink/ui-gateway/internal/domain/auth"
	"github.com/repairlink/ui-gateway/internal/ports"
)

// FileStore persists one snapshot file per session under a base directory.
// Writes go through a temp file and rename so a crash mid-write never leaves
// a truncated snapshot behind.
type FileStore struct {
	dir string
}

var _ ports.SnapshotStore = (*FileStore)(nil)

// NewFileStore creates the base directory if needed and returns a store
// rooted at it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("snapshot dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Save(_ context.Context, id string, user domainauth.SessionUser) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, id string) (domainauth.SessionUser, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return domainauth.SessionUser{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domainauth.SessionUser{}, ports.ErrSnapshotNotFound
		}
		return domainauth.SessionUser{}, fmt.Errorf("read snapshot: %w", err)
	}

	var user domainauth.SessionUser
	if err := json.Unmarshal(data, &user); err != nil {
		return domainauth.SessionUser{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return user, nil
}

func (s *FileStore) Clear(_ context.Context, id string) error {
	path, err := s.pathFor(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// pathFor rejects ids that could escape the base directory. Session ids are
// minted as UUIDs, so anything with a separator is hostile input.
func (s *FileStore) pathFor(id string) (string, error) {
	if id == "" {
		return "", errors.New("snapshot id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid snapshot id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// FileTokenCache stores one refresh token per session alongside the snapshot
// files. Token files carry the owner-only mode the snapshot dir already has.
type FileTokenCache struct {
	dir string
	id  string
}

var _ ports.TokenCache = (*FileTokenCache)(nil)

// NewFileTokenCache returns a cache bound to a single session id.
func NewFileTokenCache(dir, id string) (*FileTokenCache, error) {
	if dir == "" {
		return nil, errors.New("token dir cannot be empty")
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("invalid session id %q", id)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create token dir: %w", err)
	}
	return &FileTokenCache{dir: dir, id: id}, nil
}

func (c *FileTokenCache) SaveRefreshToken(_ context.Context, token string) error {
	if token == "" {
		return errors.New("refresh token cannot be empty")
	}
	return os.WriteFile(c.path(), []byte(token), 0o600)
}

func (c *FileTokenCache) RefreshToken(_ context.Context) (string, error) {
	data, err := os.ReadFile(c.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ports.ErrNoRefreshToken
		}
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ports.ErrNoRefreshToken
	}
	return token, nil
}

func (c *FileTokenCache) ClearRefreshToken(_ context.Context) error {
	if err := os.Remove(c.path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove refresh token: %w", err)
	}
	return nil
}

func (c *FileTokenCache) path() string {
	return filepath.Join(c.dir, c.id+".token")
}
