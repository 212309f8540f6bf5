// Package storage provides the JSON file backends for the user and ledger stores.
// Every Save rewrites the whole file; a missing or malformed file loads as empty.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/atinyakov/GophLedger/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultUsersFile is the user store file name used when none is configured.
	DefaultUsersFile = "users.json"
	// DefaultExpensesFile is the ledger store file name used when none is configured.
	DefaultExpensesFile = "expenses.json"
)

// jsonFile reads and writes one JSON document.
type jsonFile struct {
	path string
	log  *zap.Logger
}

func newJSONFile(path string, log *zap.Logger) jsonFile {
	if log == nil {
		log = zap.NewNop()
	}
	return jsonFile{path: path, log: log}
}

// load decodes the file into v and returns the raw bytes. It reports false
// when the file is absent or cannot be parsed; v is left untouched in that case.
func (f jsonFile) load(v any) ([]byte, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.log.Debug("store file absent, starting empty", zap.String("path", f.path))
		} else {
			f.log.Warn("store file unreadable, starting empty", zap.String("path", f.path), zap.Error(err))
		}
		return nil, false
	}
	if err := json.Unmarshal(data, v); err != nil {
		f.log.Warn("store file malformed, starting empty", zap.String("path", f.path), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (f jsonFile) save(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return models.WrapIO("encode "+f.path, err)
	}
	return f.write(data)
}

// write replaces the file through a temporary file in the same directory,
// so readers see either the old or the new content.
func (f jsonFile) write(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return models.WrapIO("write "+f.path, err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), f.path)
	}
	if err != nil {
		return models.WrapIO("write "+f.path, err)
	}
	return nil
}

// Marshal encodes v the way store files are written: four-space indent,
// no HTML escaping, non-ASCII kept as is.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UserFile is the file-backed user store.
// Saving keeps the user order found in the file; new users go last.
type UserFile struct {
	file jsonFile

	mu    sync.Mutex
	order []models.Username
}

// NewUserFile returns a user store persisted at path.
func NewUserFile(path string, log *zap.Logger) *UserFile {
	return &UserFile{file: newJSONFile(path, log)}
}

// Load returns every registered user. It never fails.
func (s *UserFile) Load(_ context.Context) (models.Users, error) {
	users := models.Users{}
	data, ok := s.file.load(&users)
	s.mu.Lock()
	s.order = objectKeys[models.Username](data)
	s.mu.Unlock()
	if !ok || users == nil {
		return models.Users{}, nil
	}
	for name := range users {
		if n, err := models.ParseUsername(name.String()); err != nil || n != name {
			delete(users, name)
		}
	}
	return users, nil
}

// Save overwrites the file with users.
func (s *UserFile) Save(_ context.Context, users models.Users) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := orderKeys(users, s.order)
	data, err := marshalObject(users, keys)
	if err != nil {
		return models.WrapIO("encode "+s.file.path, err)
	}
	if err := s.file.write(data); err != nil {
		return err
	}
	s.order = keys
	return nil
}

// LedgerFile is the file-backed multi-user ledger store.
// Saving keeps the user order found in the file; new users go last.
type LedgerFile struct {
	file jsonFile

	mu    sync.Mutex
	order []models.Username
}

// NewLedgerFile returns a ledger store persisted at path.
func NewLedgerFile(path string, log *zap.Logger) *LedgerFile {
	return &LedgerFile{file: newJSONFile(path, log)}
}

// Load returns the whole ledger. It never fails.
func (s *LedgerFile) Load(_ context.Context) (models.Ledger, error) {
	ledger := models.Ledger{}
	data, ok := s.file.load(&ledger)
	s.mu.Lock()
	s.order = objectKeys[models.Username](data)
	s.mu.Unlock()
	if !ok || ledger == nil {
		return models.Ledger{}, nil
	}
	return ledger, nil
}

// Save overwrites the file with ledger.
func (s *LedgerFile) Save(_ context.Context, ledger models.Ledger) error {
	for name, list := range ledger {
		if list == nil {
			ledger[name] = models.Expenses{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := orderKeys(ledger, s.order)
	data, err := marshalObject(ledger, keys)
	if err != nil {
		return models.WrapIO("encode "+s.file.path, err)
	}
	if err := s.file.write(data); err != nil {
		return err
	}
	s.order = keys
	return nil
}

// FlatLedgerFile is the single-user ledger: a bare JSON array of records.
// It is exposed as a Ledger whose only user is models.LocalUser.
type FlatLedgerFile struct {
	file jsonFile
}

// NewFlatLedgerFile returns a single-user ledger store persisted at path.
func NewFlatLedgerFile(path string, log *zap.Logger) *FlatLedgerFile {
	return &FlatLedgerFile{file: newJSONFile(path, log)}
}

// Load returns the records under models.LocalUser. It never fails.
func (s *FlatLedgerFile) Load(_ context.Context) (models.Ledger, error) {
	var list models.Expenses
	if _, ok := s.file.load(&list); !ok || list == nil {
		list = models.Expenses{}
	}
	return models.Ledger{models.LocalUser: list}, nil
}

// Save writes the records of models.LocalUser; other users are ignored.
func (s *FlatLedgerFile) Save(_ context.Context, ledger models.Ledger) error {
	list := ledger[models.LocalUser]
	if list == nil {
		list = models.Expenses{}
	}
	return s.file.save(list)
}
