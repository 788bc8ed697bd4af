// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeTitle case-folds a title, trims it and collapses internal
// whitespace runs to a single space.
func NormalizeTitle(title string) string {
	// Casers are stateful, so each call gets its own.
	return strings.Join(strings.Fields(cases.Fold().String(title)), " ")
}

// ValidateEntry validates a CorpusEntry according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - Title must already be normalized
//
// NOT validated:
//   - Tokens (an entry with no tokens is legal and yields zero vectors)
func ValidateEntry(entry *CorpusEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyTitle)
	}

	if normalized := NormalizeTitle(entry.Title); normalized != entry.Title {
		return fmt.Errorf("%w: title %q is not normalized (want %q)", ErrInvalidEntry, entry.Title, normalized)
	}

	return nil
}

// ValidateCorpus validates every entry and checks title uniqueness.
func ValidateCorpus(entries []CorpusEntry) error {
	seen := make(map[string]int, len(entries))
	for i := range entries {
		if err := ValidateEntry(&entries[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if first, ok := seen[entries[i].Title]; ok {
			return fmt.Errorf("%w: %w: %q at %d and %d", ErrInvalidEntry, ErrDuplicateTitle, entries[i].Title, first, i)
		}
		seen[entries[i].Title] = i
	}
	return nil
}

// TokenDocuments returns the token sequences of every entry, in order.
func TokenDocuments(entries []CorpusEntry) [][]string {
	docs := make([][]string, len(entries))
	for i := range entries {
		docs[i] = entries[i].Tokens
	}
	return docs
}
