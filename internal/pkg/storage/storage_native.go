package storage

import (
	"errors"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
)

type QSBadger struct {
	db *badger.DB
}

var DefaultLogFileSize int64 = 16 << 20
var DefaultMemTableSize int64 = 8 << 20
var DefaultMaxEntries uint32 = 50000
var DefaultBlockCacheSize int64 = 32 << 20
var DefaultCompressionType = options.Snappy
var DefaultPrefetchSize = 10

func (s *QSBadger) Init(path string) error {
	var err error
	s.db, err = badger.Open(badger.DefaultOptions(path).WithValueLogFileSize(DefaultLogFileSize).WithMemTableSize(DefaultMemTableSize).WithValueLogMaxEntries(DefaultMaxEntries).WithBlockCacheSize(DefaultBlockCacheSize).WithCompression(DefaultCompressionType).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return err
	}
	return nil
}

func (s *QSBadger) Close() error {
	return s.db.Close()
}

func (s *QSBadger) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		val, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (s *QSBadger) IsExist(key []byte) (bool, error) {
	var ret bool

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 1
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(key)
		ret = it.ValidForPrefix(key)
		return nil
	})

	if err == nil {
		return ret, nil
	}
	return false, err
}

func (s *QSBadger) PrefixForeach(prefix []byte, fn func([]byte, []byte, error) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = DefaultPrefetchSize
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			ferr := fn(key, val, nil)
			if ferr != nil {
				return ferr
			}
		}
		return nil
	})
	return err
}

func (s *QSBadger) BatchWrite(keys [][]byte, values [][]byte) error {
	if len(keys) != len(values) {
		return errors.New("keys' and values' length should be equal")
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	for i, k := range keys {
		v := values[i]
		e := badger.NewEntry(k, v)
		err := txn.SetEntry(e)
		if err != nil {
			return err
		}
	}
	return txn.Commit()

}
