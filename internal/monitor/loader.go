package monitor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/xuri/excelize/v2"

	"trade-monitor/internal/interfaces"
	"trade-monitor/internal/store"
	"trade-monitor/internal/types"
)

var (
	ErrNoHeader = errors.New("file has no header row")
	ErrEncoding = errors.New("file is not valid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoaderOptions mirror the watch section of the config.
type LoaderOptions struct {
	Format     string
	Delimiter  rune
	Sheet      string
	NullTokens []string
}

func LoaderOptionsFromConfig(cfg *store.Config) LoaderOptions {
	return LoaderOptions{
		Format:     cfg.ResolvedFormat(),
		Delimiter:  cfg.Delimiter(),
		Sheet:      cfg.Watch.Sheet,
		NullTokens: cfg.Watch.NullTokens,
	}
}

// TableLoader turns the watched file into a snapshot. It never returns an
// error: read and parse failures become error snapshots.
type TableLoader struct {
	opts  LoaderOptions
	cells cellTyper
	now   func() time.Time
}

var _ interfaces.SnapshotLoader = (*TableLoader)(nil)

func NewTableLoader(opts LoaderOptions) *TableLoader {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.Format == "" || opts.Format == store.FormatAuto {
		opts.Format = store.FormatCSV
	}
	return &TableLoader{
		opts:  opts,
		cells: newCellTyper(opts.NullTokens),
		now:   time.Now,
	}
}

func (l *TableLoader) Load(ctx context.Context, path string) types.Snapshot {
	ts := l.now()

	info, err := os.Stat(path)
	if err != nil {
		return errorSnapshot(ts, fmt.Errorf("failed to stat %s: %w", path, err))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errorSnapshot(ts, fmt.Errorf("failed to read %s: %w", path, err))
	}

	var (
		rows     [][]string
		padShort bool
	)
	switch l.opts.Format {
	case store.FormatXLSX:
		rows, err = readSheet(data, l.opts.Sheet)
		padShort = true
	default:
		rows, err = readDelimited(data, l.opts.Delimiter)
	}
	if err == nil {
		var records []types.Record
		records, err = l.buildRecords(rows, padShort)
		if err == nil {
			return types.Snapshot{
				Status:      types.StatusSuccess,
				Timestamp:   &ts,
				Records:     records,
				Fingerprint: xxhash.Sum64(data),
				ModTime:     info.ModTime(),
			}
		}
	}

	snap := errorSnapshot(ts, fmt.Errorf("failed to parse %s: %w", path, err))
	snap.Fingerprint = xxhash.Sum64(data)
	snap.ModTime = info.ModTime()
	return snap
}

func errorSnapshot(ts time.Time, err error) types.Snapshot {
	return types.Snapshot{
		Status:    types.StatusError,
		Timestamp: &ts,
		Records:   []types.Record{},
		Error:     err.Error(),
	}
}

func readDelimited(data []byte, delim rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrEncoding
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	// every row must have as many cells as the header
	r.FieldsPerRecord = 0
	return r.ReadAll()
}

func readSheet(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoHeader
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}

	// blank spreadsheet rows are skipped like blank CSV lines
	out := rows[:0]
	for _, row := range rows {
		if !blankRow(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (l *TableLoader) buildRecords(rows [][]string, padShort bool) ([]types.Record, error) {
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	seen := make(map[string]struct{}, len(header))
	for i, name := range rows[0] {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("header column %d is empty", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate header column %q", name)
		}
		seen[name] = struct{}{}
		header[i] = name
	}

	records := make([]types.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) > len(header) || (len(row) < len(header) && !padShort) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", n+1, len(row), len(header))
		}
		fields := make([]types.Field, len(header))
		for i, col := range header {
			v := types.Null()
			if i < len(row) {
				v = l.cells.value(row[i])
			}
			fields[i] = types.Field{Column: col, Value: v}
		}
		records = append(records, types.NewRecord(fields))
	}
	return records, nil
}
