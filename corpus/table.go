// Package corpus loads the catalog table and turns it into the token corpus
// consumed by both vector-space builders.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/tokenize"
)

// Required column names of the input table.
const (
	ColumnTitle       = "Title"
	ColumnDescription = "Description"
)

// Row is one record of the input table.
type Row struct {
	Title       string
	Description string
}

// ReadCSV reads a table with a header row. The header must contain the
// Title and Description columns (extra columns are ignored). A UTF-8 byte
// order mark on the first header cell is tolerated.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty table", core.ErrMissingColumn)
		}
		return nil, err
	}

	titleCol, descCol := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case ColumnTitle:
			titleCol = i
		case ColumnDescription:
			descCol = i
		}
	}
	var missing []string
	if titleCol < 0 {
		missing = append(missing, ColumnTitle)
	}
	if descCol < 0 {
		missing = append(missing, ColumnDescription)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ", "))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := Row{}
		if titleCol < len(record) {
			row.Title = record[titleCol]
		}
		if descCol < len(record) {
			row.Description = record[descCol]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Normalize canonicalizes the table: titles are case-folded and trimmed,
// rows with a blank title are dropped, duplicate titles collapse to their
// first occurrence, and blank descriptions become core.DefaultDescription.
func Normalize(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		title := core.NormalizeTitle(row.Title)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		desc := strings.TrimSpace(row.Description)
		if desc == "" {
			desc = core.DefaultDescription
		}
		out = append(out, Row{Title: title, Description: desc})
	}
	return out
}

// Builder tokenizes normalized rows into corpus entries.
type Builder struct {
	tokenizer     *tokenize.Tokenizer
	includeTitle  bool
	titleFallback bool
	logger        *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithTokenizer sets the tokenizer. Default is tokenize.New().
func WithTokenizer(t *tokenize.Tokenizer) Option {
	return func(b *Builder) {
		if t != nil {
			b.tokenizer = t
		}
	}
}

// WithTitleInText controls whether the title is tokenized together with
// the description. Default is true.
func WithTitleInText(include bool) Option {
	return func(b *Builder) {
		b.includeTitle = include
	}
}

// WithTitleFallback replaces an empty token sequence with the relaxed
// title tokens. Default is false: such items keep zero vectors and are
// excluded from ranking.
func WithTitleFallback(enabled bool) Option {
	return func(b *Builder) {
		b.titleFallback = enabled
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
	}
}

// NewBuilder creates a corpus builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		tokenizer:    tokenize.New(),
		includeTitle: true,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Tokenizer returns the tokenizer used for entries. Keyword queries must
// go through the same tokenizer to land in the same vocabulary.
func (b *Builder) Tokenizer() *tokenize.Tokenizer {
	return b.tokenizer
}

// Entry tokenizes a single normalized row.
func (b *Builder) Entry(row Row) core.CorpusEntry {
	text := row.Description
	if b.includeTitle {
		text = row.Title + " " + row.Description
	}
	tokens := b.tokenizer.Tokens(text)
	if len(tokens) == 0 && b.titleFallback {
		tokens = b.tokenizer.TitleTokens(row.Title)
	}
	if len(tokens) == 0 {
		b.logger.Debug("entry has no tokens", "title", row.Title)
	}
	return core.CorpusEntry{Title: row.Title, Tokens: tokens}
}

// Entries tokenizes every row, preserving order.
func (b *Builder) Entries(rows []Row) []core.CorpusEntry {
	entries := make([]core.CorpusEntry, len(rows))
	for i, row := range rows {
		entries[i] = b.Entry(row)
	}
	return entries
}
