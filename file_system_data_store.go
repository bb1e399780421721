package acme

import (
	"crypto"
	"errors"
	"io/fs"
	"os"
	"path"
	"strconv"
	"time"
)

// FileSystemStore is the default Store (spec.md 6.4), grounded on the
// teacher's FileSystemDataStore, generalized from a single implicit
// account to the (group, id) keyspace spec.md requires and extended to
// persist the account's CA URL so cross-CA loads can be rejected without
// a network round trip.
type FileSystemStore struct {
	rootPath string
}

func NewFileSystemStore(rootPath string) (*FileSystemStore, error) {
	if err := os.MkdirAll(rootPath, 0700); err != nil {
		return nil, newError(ErrorKindGeneral, "cannot create directory %q: %v", rootPath, err)
	}

	return &FileSystemStore{rootPath: rootPath}, nil
}

func (s *FileSystemStore) recordPath(group, id string) string {
	return path.Join(s.rootPath, group, id)
}

func (s *FileSystemStore) LoadAccount(group, id string) (*Account, crypto.Signer, error) {
	recordPath := s.recordPath(group, id)

	data, err := os.ReadFile(recordPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrAccountNotFound
		}

		return nil, nil, newError(ErrorKindGeneral, "cannot read %q: %v", recordPath, err)
	}

	return unmarshalAccountRecord(data)
}

func (s *FileSystemStore) SaveAccount(sess *Session, group, id string, account *Account, key crypto.Signer) error {
	data, err := marshalAccountRecord(account, key)
	if err != nil {
		return err
	}

	dirPath := path.Join(s.rootPath, group)
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return newError(ErrorKindGeneral, "cannot create directory %q: %v", dirPath, err)
	}

	recordPath := path.Join(dirPath, id)
	tmpPath := recordPath + "." + strconv.FormatInt(time.Now().UnixNano(), 10) + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return newError(ErrorKindGeneral, "cannot write %q: %v", tmpPath, err)
	}

	if err := os.Rename(tmpPath, recordPath); err != nil {
		os.Remove(tmpPath)
		return newError(ErrorKindGeneral, "cannot rename %q to %q: %v",
			tmpPath, recordPath, err)
	}

	return nil
}
