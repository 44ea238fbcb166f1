package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
)

// Value is one cell of a trade record. Numbers keep the literal text they
// were read from so that JSON output matches the file byte for byte.
type Value struct {
	kind ValueKind
	text string
	num  float64
}

func Null() Value { return Value{} }

func String(s string) Value { return Value{kind: KindString, text: s} }

// Number builds a numeric value from its literal and parsed forms. Callers
// are expected to pass a literal that is valid JSON number syntax.
func Number(literal string, f float64) Value {
	return Value{kind: KindNumber, text: literal, num: f}
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

// Text returns the string form of the cell ("" for null).
func (v Value) Text() string { return v.text }

// Float returns the parsed number; ok is false for non-numeric cells.
func (v Value) Float() (f float64, ok bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return []byte(v.text), nil
	case KindString:
		return json.Marshal(v.text)
	default:
		return []byte("null"), nil
	}
}

// Field is one column/value pair of a record.
type Field struct {
	Column string
	Value  Value
}

// Record is one row of the watched table, keyed by the header columns and
// kept in header order.
type Record struct {
	fields []Field
}

func NewRecord(fields []Field) Record {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Record{fields: cp}
}

func (r Record) Len() int { return len(r.fields) }

func (r Record) Fields() []Field {
	cp := make([]Field, len(r.fields))
	copy(cp, r.fields)
	return cp
}

func (r Record) Get(column string) (Value, bool) {
	for _, f := range r.fields {
		if f.Column == column {
			return f.Value, true
		}
	}
	return Value{}, false
}

// MarshalJSON writes the record as an object with keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusNoUpdate Status = "no_update"
)

// Snapshot is one load result of the watched file. It is never modified
// after construction; a newer load replaces it as a whole.
type Snapshot struct {
	Status    Status
	Timestamp *time.Time
	Records   []Record
	Error     string

	// Fingerprint is the xxhash64 of the bytes that were parsed. Zero when
	// the file could not be read.
	Fingerprint uint64
	// ModTime is the modification time of the file version that was loaded.
	ModTime time.Time
}

// NoUpdate is the lightweight answer for "nothing changed since last look".
func NoUpdate() Snapshot {
	return Snapshot{Status: StatusNoUpdate, Records: []Record{}}
}

func (s Snapshot) FingerprintHex() string {
	if s.Fingerprint == 0 {
		return ""
	}
	return strconv.FormatUint(s.Fingerprint, 16)
}

// TradesResponse is the wire shape of a snapshot served over HTTP and the
// push channel.
type TradesResponse struct {
	Status    Status     `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
	Data      []Record   `json:"data"`
	Error     string     `json:"error,omitempty"`
}

func (s Snapshot) Response() TradesResponse {
	data := s.Records
	if data == nil {
		data = []Record{}
	}
	return TradesResponse{
		Status:    s.Status,
		Timestamp: s.Timestamp,
		Data:      data,
		Error:     s.Error,
	}
}

// ReloadEvent summarizes a snapshot swap for journals and event streams.
type ReloadEvent struct {
	Time        string `json:"time"`
	Path        string `json:"path"`
	Status      Status `json:"status"`
	Rows        int    `json:"rows"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ModTime     string `json:"mod_time,omitempty"`
	Error       string `json:"error,omitempty"`
	Forced      bool   `json:"forced,omitempty"`
}

// SnapshotChange is handed to listeners after a snapshot swap.
type SnapshotChange struct {
	Path     string
	Snapshot Snapshot
	Forced   bool
}

func (c SnapshotChange) Event() ReloadEvent {
	ev := ReloadEvent{
		Path:        c.Path,
		Status:      c.Snapshot.Status,
		Rows:        len(c.Snapshot.Records),
		Fingerprint: c.Snapshot.FingerprintHex(),
		Error:       c.Snapshot.Error,
		Forced:      c.Forced,
	}
	if c.Snapshot.Timestamp != nil {
		ev.Time = c.Snapshot.Timestamp.Format(time.RFC3339Nano)
	}
	if !c.Snapshot.ModTime.IsZero() {
		ev.ModTime = c.Snapshot.ModTime.Format(time.RFC3339Nano)
	}
	return ev
}

// StoreStatus describes what the snapshot store currently publishes.
type StoreStatus struct {
	Path        string     `json:"path"`
	Loads       int64      `json:"loads"`
	LastStatus  Status     `json:"last_status,omitempty"`
	LastLoad    *time.Time `json:"last_load"`
	ModTime     *time.Time `json:"mod_time"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Rows        int        `json:"rows"`
	Error       string     `json:"error,omitempty"`
}
