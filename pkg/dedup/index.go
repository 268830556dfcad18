// Package dedup tracks the stable keys already persisted for each
// destination table, so re-submitted records are filtered before they
// reach the writer.
package dedup

// Index is the in-memory stable-key set for one run. It is owned by a
// single run and passed explicitly; it is not safe for concurrent use
// (per-table admission ordering is a correctness requirement, and runs
// are externally serialized per destination table).
type Index struct {
	seen map[string]map[string]struct{}
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{seen: make(map[string]map[string]struct{})}
}

// Seed preloads the key set for a table, typically from the keys already
// durably present in the warehouse, making a re-run a no-op for rows
// ingested by earlier runs.
func (i *Index) Seed(table string, keys []string) {
	set := i.tableSet(table)
	for _, key := range keys {
		set[key] = struct{}{}
	}
}

// ShouldAdmit reports whether the key has not been seen for the table,
// inserting it as the same logical step so the same key can never be
// admitted twice within a run.
func (i *Index) ShouldAdmit(table, key string) bool {
	set := i.tableSet(table)
	if _, ok := set[key]; ok {
		return false
	}
	set[key] = struct{}{}
	return true
}

// Len returns the number of keys tracked for a table.
func (i *Index) Len(table string) int {
	return len(i.seen[table])
}

func (i *Index) tableSet(table string) map[string]struct{} {
	set, ok := i.seen[table]
	if !ok {
		set = make(map[string]struct{})
		i.seen[table] = set
	}
	return set
}
