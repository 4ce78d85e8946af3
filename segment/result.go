package segment

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Result is an ordered outline. Entries are iterated in sorted heading order.
type Result struct {
	entries  []Entry
	index    map[string]int
	headings []Heading
	stats    Stats
}

// put appends e, or with overwrite replaces an existing entry with the same
// heading text in place.
func (r *Result) put(e Entry, overwrite bool) {
	i, seen := r.index[e.Heading]
	if seen && overwrite {
		r.entries[i] = e
		return
	}
	if !seen {
		r.index[e.Heading] = len(r.entries)
	}
	r.entries = append(r.entries, e)
}

// Len returns the number of outline entries.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns a copy of the outline entries in order.
func (r *Result) Entries() []Entry {
	if r == nil {
		return nil
	}
	return append([]Entry(nil), r.entries...)
}

// Lookup returns the first entry whose heading text is text.
func (r *Result) Lookup(text string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	i, ok := r.index[text]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Headings returns every detected heading sorted by Y, including repeats
// that KeyByText folded into one entry.
func (r *Result) Headings() []Heading {
	if r == nil {
		return nil
	}
	return append([]Heading(nil), r.headings...)
}

// Stats reports token accounting for the run that produced r.
func (r *Result) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return r.stats
}

// Fingerprint returns a hex BLAKE2b-256 digest of the ordered entries. Equal
// outlines have equal fingerprints.
func (r *Result) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	writeInt := func(v int) {
		binary.BigEndian.PutUint64(buf[:], uint64(int64(v)))
		h.Write(buf[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}
	for _, e := range r.Entries() {
		writeString(e.Heading)
		writeString(e.Content)
		writeString(e.Type)
		writeInt(e.Coords.X1)
		writeInt(e.Coords.Y1)
		writeInt(e.Coords.X2)
		writeInt(e.Coords.Y2)
		writeInt(e.Y)
	}
	return hex.EncodeToString(h.Sum(nil))
}
