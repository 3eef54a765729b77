// Package retrieval assembles ranked, size-bounded bundles of memory records
// relevant to a query.
//
// A bundle mixes an agent's private memory with the shared memory of the
// conversations it can see, capped so prompt cost stays bounded no matter
// how large the store grows. Retrieval is strictly read-only and degrades
// to an empty bundle instead of failing the calling chat turn.
package retrieval

import (
	"fmt"
	"strings"

	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Entry is one record inside a bundle, tagged with the scope it came from.
type Entry struct {
	// Record is the retrieved memory record.
	Record *storage.Record

	// Scope tells the prompt layer whether this is private or shared memory.
	Scope storage.OwnerKind

	// Similarity is the cosine similarity to the query. Recency-biased
	// entries that were not semantic hits carry their computed similarity
	// too; the value is informational and does not affect ordering.
	Similarity float64
}

// Bundle is the ordered result of one retrieval call.
//
// Membership and ordering are deterministic given the same store state and
// query: private entries first (ranked), then shared entries (semantic hits
// before recency-only hits), each de-duplicated by record id.
type Bundle struct {
	Entries []Entry
}

// Empty reports whether the bundle carries no entries.
func (b *Bundle) Empty() bool {
	return len(b.Entries) == 0
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	return len(b.Entries)
}

// PromptBlock renders the bundle as a delimited block for prompt injection.
//
// Each entry becomes one "[scope] content" line. The exact framing is a
// prompt-engineering concern; ordering and membership are the contract.
func (b *Bundle) PromptBlock() string {
	if b.Empty() {
		return ""
	}

	var sb strings.Builder
	for i, entry := range b.Entries {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "[%s] %s", entry.Scope, entry.Record.Content)
	}
	return sb.String()
}
