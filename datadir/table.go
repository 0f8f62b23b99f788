// Package datadir reads and writes the flat key-value tables of a speech
// data directory (wav.scp, utt2spk, segments, ...).
package datadir

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ParseError reports a malformed line in a table file.
type ParseError struct {
	File string
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.File, e.Line, e.Msg, e.Text)
}

// Table is an ordered mapping from the first field of each line to the
// remaining fields. Parsed tables also keep the text after the key as
// written, so pipe commands in wav.scp survive a round trip.
type Table struct {
	keys   []string
	fields map[string][]string
	raw    map[string]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{fields: make(map[string][]string), raw: make(map[string]string)}
}

// ParseTable reads a table from r. name is used in error messages.
// Blank lines are skipped; a repeated key is an error.
func ParseTable(r io.Reader, name string) (*Table, error) {
	t := NewTable()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if _, dup := t.fields[parts[0]]; dup {
			return nil, &ParseError{File: name, Line: lineNum, Text: line, Msg: "duplicate key " + parts[0]}
		}
		t.Set(parts[0], parts[1:]...)
		if len(parts) > 1 {
			rest := strings.TrimLeftFunc(line, unicode.IsSpace)[len(parts[0]):]
			t.raw[parts[0]] = strings.TrimSpace(rest)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return t, nil
}

// ReadTable opens and parses a table file.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTable(f, path)
}

// Set adds or replaces the fields for key. New keys keep insertion order.
func (t *Table) Set(key string, fields ...string) {
	if _, ok := t.fields[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.fields[key] = fields
	delete(t.raw, key)
}

// Get returns the fields stored for key.
func (t *Table) Get(key string) ([]string, bool) {
	f, ok := t.fields[key]
	return f, ok
}

// Value returns everything after the key: the parsed text unchanged, or
// the fields joined by single spaces when they were Set.
func (t *Table) Value(key string) (string, bool) {
	f, ok := t.fields[key]
	if !ok {
		return "", false
	}
	if v, ok := t.raw[key]; ok {
		return v, true
	}
	return strings.Join(f, " "), true
}

// Keys returns keys in insertion order.
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// SortedKeys returns keys in byte order.
func (t *Table) SortedKeys() []string {
	out := t.Keys()
	sort.Strings(out)
	return out
}

// Len returns the number of keys.
func (t *Table) Len() int {
	return len(t.keys)
}

// Write writes the table sorted by key, one "key fields..." line each.
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, k := range t.SortedKeys() {
		v, _ := t.Value(k)
		if v == "" {
			fmt.Fprintln(bw, k)
			continue
		}
		fmt.Fprintf(bw, "%s %s\n", k, v)
	}
	return bw.Flush()
}

// WriteFile writes the table to path.
func (t *Table) WriteFile(path string) error {
	return writeFile(path, t.Write)
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
