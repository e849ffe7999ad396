// Package sessiondb keeps the dev backend's bearer sessions in a go-memdb
// table. Only the sha256 of a token is stored; the raw token is handed to the
// client once, on creation.
package sessiondb

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
)

const table = "sessions"

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		table: {
			Name: table,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "TokenHash"},
				},
				"sessionID": {
					Name:         "sessionID",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"userID": {
					Name:         "userID",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "UserID"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Session is one issued bearer token.
type Session struct {
	TokenHash string
	ID        string
	UserID    int64
	Expires   int64 // unix seconds
}

// DB is the in-memory session table.
type DB struct {
	db  *memdb.MemDB
	ttl time.Duration
	now func() time.Time
}

// New creates an empty session table issuing sessions valid for ttl.
func New(ttl time.Duration) (*DB, error) {
	if ttl <= 0 {
		return nil, errors.New("session ttl must be > 0")
	}
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	return &DB{db: db, ttl: ttl, now: time.Now}, nil
}

// Create issues a session for userID and returns the raw token.
func (d *DB) Create(userID int64) (string, *Session, error) {
	raw := uuid.NewString()
	ses := &Session{
		TokenHash: hashToken(raw),
		ID:        uuid.NewString(),
		UserID:    userID,
		Expires:   d.now().Add(d.ttl).Unix(),
	}

	txn := d.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(table, ses); err != nil {
		return "", nil, err
	}
	txn.Commit()

	return raw, ses, nil
}

// Lookup resolves a raw token. Expired sessions are reported as missing.
func (d *DB) Lookup(raw string) (*Session, bool) {
	if raw == "" {
		return nil, false
	}

	txn := d.db.Txn(false)
	obj, err := txn.First(table, "id", hashToken(raw))
	if err != nil || obj == nil {
		return nil, false
	}

	ses := obj.(*Session)
	if ses.Expires <= d.now().Unix() {
		return nil, false
	}
	return ses, true
}

// Terminate removes the session of raw. Unknown tokens are ignored.
func (d *DB) Terminate(raw string) error {
	txn := d.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(table, "id", hashToken(raw)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateByUserID removes every session of userID and returns how many were removed.
func (d *DB) TerminateByUserID(userID int64) (int, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()
	n, err := txn.DeleteAll(table, "userID", userID)
	if err != nil {
		return 0, err
	}
	txn.Commit()
	return n, nil
}

// TerminateExpired removes every expired session and returns how many were removed.
func (d *DB) TerminateExpired() (int, error) {
	txn := d.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound(table, "expires", int64(0))
	if err != nil {
		return 0, err
	}

	now := d.now().Unix()
	var expired []*Session
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ses := obj.(*Session)
		if ses.Expires > now {
			break
		}
		expired = append(expired, ses)
	}

	for _, ses := range expired {
		if err := txn.Delete(table, ses); err != nil {
			return 0, err
		}
	}
	txn.Commit()
	return len(expired), nil
}

// Count returns the number of stored sessions, expired ones included.
func (d *DB) Count() int {
	txn := d.db.Txn(false)
	it, err := txn.Get(table, "id")
	if err != nil {
		return 0
	}
	n := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		n++
	}
	return n
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
