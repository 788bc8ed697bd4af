package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DefaultDescription is substituted for rows whose description is missing.
const DefaultDescription = "no description"

// Fingerprint identifies the exact contents and order of a corpus.
// Every persisted vector space records the fingerprint of the corpus it
// was built from so that misaligned artifacts can be detected at load time.
type Fingerprint uint64

// CorpusEntry is one catalog item: a normalized, unique title and the
// ordered tokens extracted from its title and description.
type CorpusEntry struct {
	Title  string
	Tokens []string
}

// FingerprintCorpus hashes every entry's title and tokens, in corpus order,
// using BLAKE2b. Identical corpora produce identical fingerprints.
func FingerprintCorpus(entries []CorpusEntry) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	var lenBuf [binary.MaxVarintLen64]byte
	for _, entry := range entries {
		n := binary.PutUvarint(lenBuf[:], uint64(len(entry.Title)))
		h.Write(lenBuf[:n])
		h.Write([]byte(entry.Title))
		n = binary.PutUvarint(lenBuf[:], uint64(len(entry.Tokens)))
		h.Write(lenBuf[:n])
		for _, token := range entry.Tokens {
			n = binary.PutUvarint(lenBuf[:], uint64(len(token)))
			h.Write(lenBuf[:n])
			h.Write([]byte(token))
		}
	}
	return Fingerprint(binary.LittleEndian.Uint64(h.Sum(nil)))
}

// Manifest describes one offline build. It is written last, after every
// artifact it describes has been persisted.
type Manifest struct {
	Fingerprint   Fingerprint
	Entries       int
	LexicalTerms  int
	SemanticWords int
	Dimension     int
	BuiltAt       time.Time
}

// QueryKind identifies how a user request is answered.
type QueryKind int

const (
	// QueryByTitle references an existing corpus entry by index.
	QueryByTitle QueryKind = iota + 1
	// QueryByKeyword is free text matched against the lexical space only.
	QueryByKeyword
)

// String returns the kind's label as used in logs and metrics.
func (k QueryKind) String() string {
	switch k {
	case QueryByTitle:
		return "title"
	case QueryByKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// Query is a resolved user request.
// Index is meaningful for QueryByTitle, Text for QueryByKeyword.
type Query struct {
	Kind  QueryKind
	Index int
	Text  string
}

// Reason explains the outcome of a recommendation request.
type Reason int

const (
	ReasonOK Reason = iota
	// ReasonModelsNotReady means a corpus or vector space is missing or misaligned.
	ReasonModelsNotReady
	// ReasonInvalidReference means the reference index or title could not be resolved.
	ReasonInvalidReference
	// ReasonNoCandidates means every item was filtered out by zero-vector rules.
	ReasonNoCandidates
	// ReasonEmptyQuery means the user input was blank.
	ReasonEmptyQuery
)

func (r Reason) String() string {
	switch r {
	case ReasonOK:
		return "ok"
	case ReasonModelsNotReady:
		return "models_not_ready"
	case ReasonInvalidReference:
		return "invalid_reference"
	case ReasonNoCandidates:
		return "no_candidates"
	case ReasonEmptyQuery:
		return "empty_query"
	default:
		return "unknown"
	}
}

// Err maps a reason onto its sentinel error. ReasonOK maps to nil.
func (r Reason) Err() error {
	switch r {
	case ReasonOK:
		return nil
	case ReasonModelsNotReady:
		return ErrModelsNotReady
	case ReasonInvalidReference:
		return ErrInvalidReference
	case ReasonNoCandidates:
		return ErrNoCandidates
	case ReasonEmptyQuery:
		return ErrEmptyQuery
	default:
		return ErrNoCandidates
	}
}

// Detail refines a Reason with the internal cause of an empty result.
type Detail int

const (
	DetailNone Detail = iota
	// DetailDegenerateLexical: the reference item's lexical row is the zero vector.
	DetailDegenerateLexical
	// DetailDegenerateSemantic: the reference item's sentence vector is the zero vector.
	DetailDegenerateSemantic
	// DetailNoOverlap: no corpus item scored above zero for a keyword.
	DetailNoOverlap
)

func (d Detail) String() string {
	switch d {
	case DetailDegenerateLexical:
		return "degenerate_lexical"
	case DetailDegenerateSemantic:
		return "degenerate_semantic"
	case DetailNoOverlap:
		return "no_overlap"
	default:
		return "none"
	}
}

// Scored pairs a corpus index with its similarity score.
type Scored struct {
	Index int
	Score float64
}

// Recommendation is the outcome of one query. Titles is empty whenever
// Reason is not ReasonOK.
type Recommendation struct {
	Query  Query
	Titles []string
	Reason Reason
	Detail Detail
}

// Empty reports whether the recommendation carries no titles.
func (r Recommendation) Empty() bool {
	return len(r.Titles) == 0
}
