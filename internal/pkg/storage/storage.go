package storage

import "errors"

var ErrNotFound = errors.New("key not found")

type QuorumStorage interface {
	Init(path string) error
	Close() error
	Get(key []byte) ([]byte, error)
	IsExist(key []byte) (bool, error)
	PrefixForeach(prefix []byte, fn func([]byte, []byte, error) error) error

	// atomic batch write
	BatchWrite(keys [][]byte, values [][]byte) error
}
