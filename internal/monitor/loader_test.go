package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"trade-monitor/internal/store"
	"trade-monitor/internal/types"
)

func csvLoader() *TableLoader {
	return NewTableLoader(LoaderOptions{Format: store.FormatCSV, NullTokens: []string{"########"}})
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func recordsJSON(t *testing.T, snap types.Snapshot) string {
	t.Helper()
	b, err := json.Marshal(snap.Records)
	require.NoError(t, err)
	return string(b)
}

func TestTableLoader_CSV(t *testing.T) {
	content := "A,B\n1,x\n2,y\n"
	path := writeTemp(t, "trades.csv", content)

	snap := csvLoader().Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status, snap.Error)
	require.NotNil(t, snap.Timestamp)
	assert.Equal(t, `[{"A":1,"B":"x"},{"A":2,"B":"y"}]`, recordsJSON(t, snap))
	assert.Equal(t, xxhash.Sum64String(content), snap.Fingerprint)
	assert.False(t, snap.ModTime.IsZero())
}

func TestTableLoader_HeaderOnly(t *testing.T) {
	path := writeTemp(t, "trades.csv", "A,B\n")

	snap := csvLoader().Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status)
	assert.NotNil(t, snap.Records)
	assert.Empty(t, snap.Records)
}

func TestTableLoader_KeepsColumnOrder(t *testing.T) {
	path := writeTemp(t, "trades.csv", "zeta,alpha,mid\n1,2,3\n")

	snap := csvLoader().Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status)
	assert.Equal(t, `[{"zeta":1,"alpha":2,"mid":3}]`, recordsJSON(t, snap))
}

func TestTableLoader_BOMAndWhitespace(t *testing.T) {
	path := writeTemp(t, "trades.csv", "\ufeff Symbol , Qty \n AAPL , 10 \n")

	snap := csvLoader().Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status, snap.Error)
	assert.Equal(t, `[{"Symbol":"AAPL","Qty":10}]`, recordsJSON(t, snap))
}

func TestTableLoader_NullCells(t *testing.T) {
	path := writeTemp(t, "trades.csv", "Symbol,PnL,Note\nAAPL,########,\n")

	snap := csvLoader().Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status)
	assert.Equal(t, `[{"Symbol":"AAPL","PnL":null,"Note":null}]`, recordsJSON(t, snap))
}

func TestTableLoader_Delimiter(t *testing.T) {
	path := writeTemp(t, "trades.csv", "A;B\n1,5;x\n")
	l := NewTableLoader(LoaderOptions{Format: store.FormatCSV, Delimiter: ';'})

	snap := l.Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status)
	assert.Equal(t, `[{"A":"1,5","B":"x"}]`, recordsJSON(t, snap))
}

func TestTableLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"long row", "A,B\n1,2,3\n"},
		{"short row", "A,B\n1\n"},
		{"duplicate header", "A,A\n1,2\n"},
		{"empty header", "A,,C\n1,2,3\n"},
		{"bad quoting", "A,B\n\"1,2\n"},
		{"invalid utf8", "A,B\n\xff,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "trades.csv", tt.content)

			snap := csvLoader().Load(context.Background(), path)

			assert.Equal(t, types.StatusError, snap.Status)
			assert.NotEmpty(t, snap.Error)
			assert.NotNil(t, snap.Timestamp)
			assert.NotNil(t, snap.Records)
			assert.Empty(t, snap.Records)
		})
	}
}

func TestTableLoader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.csv")

	snap := csvLoader().Load(context.Background(), path)

	assert.Equal(t, types.StatusError, snap.Status)
	assert.Contains(t, snap.Error, "gone.csv")
	assert.Zero(t, snap.Fingerprint)
}

func TestTableLoader_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Symbol", "Qty", "Note"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"AAPL", 10, "first"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]any{"MSFT", 2.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l := NewTableLoader(LoaderOptions{Format: store.FormatXLSX})
	snap := l.Load(context.Background(), path)

	require.Equal(t, types.StatusSuccess, snap.Status, snap.Error)
	assert.Equal(t,
		`[{"Symbol":"AAPL","Qty":10,"Note":"first"},{"Symbol":"MSFT","Qty":2.5,"Note":null}]`,
		recordsJSON(t, snap))
}

func TestTableLoader_XLSXUnknownSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	l := NewTableLoader(LoaderOptions{Format: store.FormatXLSX, Sheet: "Missing"})
	snap := l.Load(context.Background(), path)

	assert.Equal(t, types.StatusError, snap.Status)
}

func TestTableLoader_CorruptXLSX(t *testing.T) {
	path := writeTemp(t, "trades.xlsx", "not a zip")

	l := NewTableLoader(LoaderOptions{Format: store.FormatXLSX})
	snap := l.Load(context.Background(), path)

	assert.Equal(t, types.StatusError, snap.Status)
	assert.NotZero(t, snap.Fingerprint)
}
