// Package models defines the core data structures for users and expenses.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultCategory is assigned to expenses added without a category.
	DefaultCategory = "general"
	// DateLayout is the storage format of Expense.Date.
	DateLayout = "2006-01-02"
	// LocalUser owns the records of the single-user ledger file.
	LocalUser Username = "local"
)

// Username identifies a user. It is case-sensitive and never empty.
type Username string

// ParseUsername trims s and validates it as a Username.
func ParseUsername(s string) (Username, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidUsername
	}
	return Username(s), nil
}

// String returns the raw username.
func (u Username) String() string { return string(u) }

// User represents an application user with credentials.
type User struct {
	// Username is the login name chosen by the user.
	Username Username
	// PasswordHash is the hex digest (or bcrypt hash) of the password.
	PasswordHash string
}

// Users maps usernames to password hashes, as stored in the user file.
type Users map[Username]string

// Expense is a single expense record owned by one user.
type Expense struct {
	// ID is unique within the owning user's list.
	ID int64 `json:"id"`
	// Date is the creation day in DateLayout.
	Date string `json:"date"`
	// Description is a free-form, non-empty note.
	Description string `json:"description"`
	// Amount is the positive amount spent.
	Amount float64 `json:"amount"`
	// Category groups expenses, "general" by default.
	Category string `json:"category"`
}

// MarshalJSON writes the record with Amount always carrying a fractional
// part ("amount": 2.0), the way existing data files store it.
func (e Expense) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(struct {
		ID          int64       `json:"id"`
		Date        string      `json:"date"`
		Description string      `json:"description"`
		Amount      floatNumber `json:"amount"`
		Category    string      `json:"category"`
	}{e.ID, e.Date, e.Description, floatNumber(e.Amount), e.Category})
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// floatNumber encodes like a float repr: whole values keep ".0", very
// large or small magnitudes use an exponent.
type floatNumber float64

func (f floatNumber) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("unsupported amount %v", v)
	}
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.AppendFloat(nil, v, 'e', -1, 64), nil
	}
	b := strconv.AppendFloat(nil, v, 'f', -1, 64)
	if !bytes.ContainsRune(b, '.') {
		b = append(b, ".0"...)
	}
	return b, nil
}

// Expenses is an ordered list of records in insertion order.
type Expenses []Expense

// NextID returns max(id)+1, or 1 for an empty list.
func (e Expenses) NextID() int64 {
	var maxID int64
	for _, exp := range e {
		if exp.ID > maxID {
			maxID = exp.ID
		}
	}
	return maxID + 1
}

// Index returns the position of the record with the given id, or -1.
func (e Expenses) Index(id int64) int {
	for i, exp := range e {
		if exp.ID == id {
			return i
		}
	}
	return -1
}

// Ledger holds every user's expenses, keyed by username.
type Ledger map[Username]Expenses

// UnmarshalJSON decodes a ledger, dropping entries whose key is not a valid username.
func (l *Ledger) UnmarshalJSON(data []byte) error {
	var raw map[string]Expenses
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Ledger, len(raw))
	for k, v := range raw {
		name, err := ParseUsername(k)
		if err != nil || name.String() != k {
			continue
		}
		out[name] = v
	}
	*l = out
	return nil
}
