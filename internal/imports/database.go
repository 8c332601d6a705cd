package imports

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const importsBucket = "imports"

// ErrNotFound is returned when no import has the requested ID.
var ErrNotFound = errors.New("import not found")

// DB persists imports
type DB interface {
	SaveImport(imp *Import) error

	// GetImport returns ErrNotFound for unknown IDs
	GetImport(id string) (*Import, error)

	ListImports() ([]*Import, error)

	DeleteImport(id string) error

	Close() error
}

// BoltDB implements DB with one bbolt bucket holding JSON documents
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens or creates the database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(importsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating imports bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) SaveImport(imp *Import) error {
	data, err := json.Marshal(imp)
	if err != nil {
		return fmt.Errorf("marshaling import: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(importsBucket)).Put([]byte(imp.ID), data)
	})
}

func (b *BoltDB) GetImport(id string) (*Import, error) {
	var imp *Import
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(importsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &imp)
	})
	if err != nil {
		return nil, err
	}
	return imp, nil
}

func (b *BoltDB) ListImports() ([]*Import, error) {
	imps := make([]*Import, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(importsBucket)).ForEach(func(k, v []byte) error {
			var imp Import
			if err := json.Unmarshal(v, &imp); err != nil {
				return fmt.Errorf("unmarshaling import %s: %w", k, err)
			}
			imps = append(imps, &imp)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return imps, nil
}

func (b *BoltDB) DeleteImport(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(importsBucket)).Delete([]byte(id))
	})
}

func (b *BoltDB) Close() error {
	return b.db.Close()
}
