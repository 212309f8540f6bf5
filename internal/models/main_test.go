package models

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUsername(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Username
		wantErr bool
	}{
		{"plain", "alice", "alice", false},
		{"trimmed", "  bob \t", "bob", false},
		{"case kept", "Alice", "Alice", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUsername(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidUsername)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpenses_NextID(t *testing.T) {
	assert.Equal(t, int64(1), Expenses(nil).NextID())
	assert.Equal(t, int64(4), Expenses{{ID: 1}, {ID: 3}, {ID: 2}}.NextID())
}

func TestExpenses_Index(t *testing.T) {
	list := Expenses{{ID: 1}, {ID: 5}}
	assert.Equal(t, 1, list.Index(5))
	assert.Equal(t, -1, list.Index(2))
}

func TestLedger_UnmarshalDropsInvalidKeys(t *testing.T) {
	raw := `{"alice":[{"id":1,"date":"2026-01-02","description":"tea","amount":2.5,"category":"food"}],"":[{"id":1}]," bob ":[]}`

	var l Ledger
	require.NoError(t, json.Unmarshal([]byte(raw), &l))

	assert.Len(t, l, 1)
	require.Len(t, l["alice"], 1)
	assert.Equal(t, "tea", l["alice"][0].Description)
}

func TestLedger_UnmarshalRejectsWrongShape(t *testing.T) {
	var l Ledger
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &l))
}

func TestExpense_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   string
	}{
		{"whole", 2, "2.0"},
		{"fraction", 12.5, "12.5"},
		{"zero", 0, "0.0"},
		{"large", 1e16, "1e+16"},
		{"small", 0.00001, "1e-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(Expense{ID: 1, Date: "2026-10-15", Description: "tea", Amount: tt.amount, Category: "food"})
			require.NoError(t, err)
			assert.Equal(t, `{"id":1,"date":"2026-10-15","description":"tea","amount":`+tt.want+`,"category":"food"}`, string(b))

			var back Expense
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, tt.amount, back.Amount)
		})
	}
}

func TestExpense_MarshalJSONRejectsNaN(t *testing.T) {
	_, err := json.Marshal(Expense{Amount: math.NaN()})
	assert.Error(t, err)
}

func TestWrapIO(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapIO("write export", cause)

	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "write export")
	assert.NoError(t, WrapIO("noop", nil))
}
