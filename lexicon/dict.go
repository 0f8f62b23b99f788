// Package lexicon loads CMU-style pronunciation dictionaries and expands
// word lists into lexicon entries.
package lexicon

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/ieee0824/speechdata-go/datadir"
)

// Entry is a single pronunciation of a word.
type Entry struct {
	Word   string
	Phones []string
}

func (e Entry) String() string {
	if len(e.Phones) == 0 {
		return e.Word
	}
	return e.Word + " " + strings.Join(e.Phones, " ")
}

// Dictionary holds word-to-pronunciation mappings. Variants keep the order
// in which they were added.
type Dictionary struct {
	Entries map[string][]Entry
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{Entries: make(map[string][]Entry)}
}

// Add adds a pronunciation for word.
func (d *Dictionary) Add(word string, phones []string) {
	d.Entries[word] = append(d.Entries[word], Entry{Word: word, Phones: phones})
}

var (
	variantMarker = regexp.MustCompile(`\([0-9]+\)`)
	stressMarker  = regexp.MustCompile(`[0-9]`)
)

// LoadCMU reads a CMU dictionary. Lines starting with ";;;" are comments.
// Variant markers such as "(2)" are removed from words and stress digits
// from phones, so "READ(2)  R EH1 D" becomes READ -> R EH D.
func LoadCMU(r io.Reader, name string) (*Dictionary, error) {
	d := NewDictionary()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, ";;;") || strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			return nil, &datadir.ParseError{File: name, Line: lineNum, Text: line, Msg: "word without pronunciation"}
		}
		word := variantMarker.ReplaceAllString(parts[0], "")
		phones := strings.Fields(stressMarker.ReplaceAllString(strings.Join(parts[1:], " "), ""))
		d.Add(word, phones)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return d, nil
}

// LoadCMUFile is a convenience wrapper that opens a file path.
func LoadCMUFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCMU(f, path)
}

// Prons returns all pronunciation variants for a word. Words in angle
// brackets such as <unk> are their own pronunciation.
func (d *Dictionary) Prons(word string) []Entry {
	if entries, ok := d.Entries[word]; ok {
		return entries
	}
	if strings.HasPrefix(word, "<") {
		return []Entry{{Word: word, Phones: []string{word}}}
	}
	return nil
}

// Lookup expands words into lexicon entries. Words with no pronunciation
// are returned as oov, in input order.
func (d *Dictionary) Lookup(words []string) (entries []Entry, oov []string) {
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		prons := d.Prons(w)
		if len(prons) == 0 {
			oov = append(oov, w)
			continue
		}
		entries = append(entries, prons...)
	}
	return entries, oov
}

// Words returns all words in the dictionary, sorted.
func (d *Dictionary) Words() []string {
	words := make([]string, 0, len(d.Entries))
	for w := range d.Entries {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}
