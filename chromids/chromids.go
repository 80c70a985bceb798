// Package chromids interns chromosome names to small integer ids. A Table is
// a plain context object rather than a package-level singleton: one Table is
// created per program invocation and threaded through the encoder and
// decoder, so concurrent invocations (as in tests) never share state.
package chromids

import "sync"

// Table interns chromosome names to dense, stable integer ids assigned in
// first-seen order. Both the VCF parser pool (vcf.Reader, one goroutine per
// line) and the bref4 block-inflater pool (bref4.It, one goroutine per
// block) call Intern concurrently on the same Table, so it guards its state
// with a mutex rather than requiring a single ingestion thread.
type Table struct {
	mu    sync.Mutex
	idOf  map[string]int32
	names []string
}

// New returns an empty interning table.
func New() *Table {
	return &Table{idOf: make(map[string]int32)}
}

// Intern returns the id for name, assigning a new one if name has not been
// seen before. Safe for concurrent use.
func (t *Table) Intern(name string) int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.idOf[name]; ok {
		return id
	}
	id := int32(len(t.names))
	t.idOf[name] = id
	t.names = append(t.names, name)
	return id
}

// Lookup returns the id of name without interning it, and whether it is
// already known.
func (t *Table) Lookup(name string) (int32, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.idOf[name]
	return id, ok
}

// Name returns the chromosome name for id.
func (t *Table) Name(id int32) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.names[id]
}

// Len returns the number of distinct chromosomes interned so far.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.names)
}
