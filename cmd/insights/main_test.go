package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/pfinance/insights/internal/finance"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadSnapshot(t *testing.T) {
	tx := `{"id":"t1","type":"expense","amount":"42.10","description":"Coles","category":"food","date":"2025-05-02"}`

	tests := []struct {
		name        string
		body        string
		expectedLen int
		dataError   bool
	}{
		{"bare array", "[" + tx + "]", 1, false},
		{"wrapped", `{"transactions":[` + tx + "," + tx + "]}", 2, false},
		{"leading whitespace", "\n  [" + tx + "]", 1, false},
		{"bad date in array", `[{"id":"t1","type":"expense","amount":"1","date":"02/05/2025"}]`, 0, true},
		{"bad category wrapped", `{"transactions":[{"id":"t1","type":"expense","amount":"1","category":"yachts","date":"2025-05-02"}]}`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			txs, err := readSnapshot(writeFile(t, tc.body))
			if tc.dataError {
				require.Error(t, err)
				assert.True(t, finance.IsDataError(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, txs, tc.expectedLen)
			assert.Equal(t, finance.CategoryFood, txs[0].Category)
		})
	}

	_, err := readSnapshot(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
