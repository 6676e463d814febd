// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

/*
store.go - BadgerDB-Backed Permission Cache

Pure storage. The store answers string/set/bool reads against the three
permission key families and reports ErrCacheMiss for anything absent or
expired. Writes exist for the out-of-band population path and for tests;
the cache-aside Reader never calls them.
*/

package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/boardpulse/internal/config"
)

// ErrCacheMiss is returned for keys that are absent or expired.
var ErrCacheMiss = errors.New("permission cache miss")

// Store is a BadgerDB-backed permission cache with per-key-family TTLs.
type Store struct {
	db  *badger.DB
	cfg *config.PermCacheConfig
}

// NewStore opens the Badger database at cfg.Dir. An empty Dir opens an
// in-memory database, which tests use.
func NewStore(cfg *config.PermCacheConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	opts.Logger = nil // Suppress BadgerDB internal logs
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		// Permission entries are tiny; a small value log is plenty.
		opts.ValueLogFileSize = 16 << 20
		opts.SyncWrites = true
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open permission cache: %w", err)
	}
	return &Store{db: db, cfg: cfg}, nil
}

// NewStoreFromDB wraps an existing BadgerDB connection, for sharing one
// instance across stores.
func NewStoreFromDB(db *badger.DB, cfg *config.PermCacheConfig) *Store {
	return &Store{db: db, cfg: cfg}
}

func roleKey(userID, projectID string) []byte {
	return []byte("user:" + userID + ":project:" + projectID)
}

func permissionsKey(roleID string) []byte {
	return []byte("role:" + roleID + ":permissions")
}

func ownerKey(roleID string) []byte {
	return []byte("role:" + roleID + ":isOwner")
}

// getRaw reads one key. Absent and expired keys both surface as ErrCacheMiss.
func (s *Store) getRaw(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrCacheMiss
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RoleID returns the cached role assignment for a user/project pair.
func (s *Store) RoleID(ctx context.Context, userID, projectID string) (string, error) {
	val, err := s.getRaw(roleKey(userID, projectID))
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// Permissions returns the cached permission strings for a role.
func (s *Store) Permissions(ctx context.Context, roleID string) ([]string, error) {
	val, err := s.getRaw(permissionsKey(roleID))
	if err != nil {
		return nil, err
	}
	var perms []string
	if err := json.Unmarshal(val, &perms); err != nil {
		return nil, fmt.Errorf("unmarshal permission set for role %s: %w", roleID, err)
	}
	return perms, nil
}

// IsOwner returns the cached owner flag for a role.
func (s *Store) IsOwner(ctx context.Context, roleID string) (bool, error) {
	val, err := s.getRaw(ownerKey(roleID))
	if err != nil {
		return false, err
	}
	return string(val) == "true", nil
}

// SetRoleID caches a user/project role assignment under the role TTL.
func (s *Store) SetRoleID(ctx context.Context, userID, projectID, roleID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(roleKey(userID, projectID), []byte(roleID)).WithTTL(s.cfg.RoleTTL)
		return txn.SetEntry(e)
	})
}

// SetPermissions caches a role's permission strings under the permissions TTL.
func (s *Store) SetPermissions(ctx context.Context, roleID string, perms []string) error {
	data, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("marshal permission set for role %s: %w", roleID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(permissionsKey(roleID), data).WithTTL(s.cfg.PermissionsTTL)
		return txn.SetEntry(e)
	})
}

// SetIsOwner caches a role's owner flag under the owner TTL.
func (s *Store) SetIsOwner(ctx context.Context, roleID string, isOwner bool) error {
	val := "false"
	if isOwner {
		val = "true"
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(ownerKey(roleID), []byte(val)).WithTTL(s.cfg.OwnerTTL)
		return txn.SetEntry(e)
	})
}

// InvalidateRole removes a user/project role assignment.
func (s *Store) InvalidateRole(ctx context.Context, userID, projectID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(roleKey(userID, projectID))
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
