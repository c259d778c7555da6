package keystore

import "errors"

var (
	ErrKeyNotFound      = errors.New("keystore: key not found")
	ErrEmailExists      = errors.New("keystore: email already has a key")
	ErrInvalidConfig    = errors.New("keystore: invalid store configuration")
	ErrInvalidStoreType = errors.New("keystore: unsupported store type")
)
