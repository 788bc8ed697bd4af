// Package tokenize extracts normalized tokens from item text.
//
// Two scripts are recognised. Runs of ASCII letters are lowercased and
// kept when at least three characters long; runs of Hangul syllables are
// kept when at least two characters long. Everything else (digits,
// punctuation, other scripts) separates tokens. Stop words for both
// languages are removed. English tokens follow Hangul tokens in the
// output, matching the order the corpus was originally tokenized in.
//
// Each script is a bleve analyzer: a run tokenizer from this package
// followed by bleve's lowercase, length and stop token filters.
package tokenize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/registry"
)

// Registry names of the run tokenizers.
const (
	EnglishTokenizerName = "gamerec_english_runs"
	HangulTokenizerName  = "gamerec_hangul_runs"
	WordTokenizerName    = "gamerec_word_runs"
)

const (
	defaultMinEnglish = 3
	defaultMinKorean  = 2
	minTitleToken     = 2
)

func init() {
	registry.RegisterTokenizer(EnglishTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return englishRuns, nil
	})
	registry.RegisterTokenizer(HangulTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return hangulRuns, nil
	})
	registry.RegisterTokenizer(WordTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return wordRuns, nil
	})
}

var (
	englishRuns = &RunTokenizer{keep: isASCIILetter, kind: analysis.AlphaNumeric}
	hangulRuns  = &RunTokenizer{keep: isHangul, kind: analysis.Ideographic}
	wordRuns    = &RunTokenizer{keep: isWordRune, kind: analysis.AlphaNumeric}
)

// RunTokenizer implements analysis.Tokenizer by emitting every maximal
// run of runes accepted by its predicate.
type RunTokenizer struct {
	keep func(rune) bool
	kind analysis.TokenType
}

// Tokenize splits input into runs.
func (t *RunTokenizer) Tokenize(input []byte) analysis.TokenStream {
	stream := make(analysis.TokenStream, 0)
	start := -1
	emit := func(end int) {
		if start < 0 {
			return
		}
		stream = append(stream, &analysis.Token{
			Term:     input[start:end:end],
			Start:    start,
			End:      end,
			Position: len(stream) + 1,
			Type:     t.kind,
		})
		start = -1
	}
	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		if t.keep(r) {
			if start < 0 {
				start = i
			}
		} else {
			emit(i)
		}
		i += size
	}
	emit(len(input))
	return stream
}

// Tokenizer turns free text into an ordered token sequence.
// A Tokenizer is immutable and safe for concurrent use.
type Tokenizer struct {
	minEnglish int
	minKorean  int
	koreanOff  bool
	extraStops []string

	english *analysis.DefaultAnalyzer
	korean  *analysis.DefaultAnalyzer
	title   *analysis.DefaultAnalyzer
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMinEnglishLength sets the minimum length of English tokens.
func WithMinEnglishLength(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.minEnglish = n
		}
	}
}

// WithMinKoreanLength sets the minimum length (in syllables) of Hangul tokens.
func WithMinKoreanLength(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.minKorean = n
		}
	}
}

// WithStopWords adds stop words on top of the built-in lists.
func WithStopWords(words ...string) Option {
	return func(t *Tokenizer) {
		for _, w := range words {
			t.extraStops = append(t.extraStops, strings.ToLower(w))
		}
	}
}

// WithoutKorean disables Hangul extraction.
func WithoutKorean() Option {
	return func(t *Tokenizer) {
		t.koreanOff = true
	}
}

// New creates a tokenizer with the default rules.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		minEnglish: defaultMinEnglish,
		minKorean:  defaultMinKorean,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.english = &analysis.DefaultAnalyzer{
		Tokenizer: englishRuns,
		TokenFilters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
			length.NewLengthFilter(t.minEnglish, 0),
			stop.NewStopTokensFilter(stopTokens(englishStopWords, t.extraStops)),
		},
	}
	if !t.koreanOff {
		t.korean = &analysis.DefaultAnalyzer{
			Tokenizer: hangulRuns,
			TokenFilters: []analysis.TokenFilter{
				length.NewLengthFilter(t.minKorean, 0),
				stop.NewStopTokensFilter(stopTokens(koreanStopWords, t.extraStops)),
			},
		}
	}
	t.title = &analysis.DefaultAnalyzer{
		Tokenizer: wordRuns,
		TokenFilters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
			length.NewLengthFilter(minTitleToken, 0),
		},
	}
	return t
}

// Tokens extracts the token sequence for text.
func (t *Tokenizer) Tokens(text string) []string {
	var korean []string
	if t.korean != nil {
		korean = terms(t.korean.Analyze([]byte(text)))
	}
	english := terms(t.english.Analyze([]byte(text)))
	if len(korean) == 0 {
		return english
	}
	return append(korean, english...)
}

// TitleTokens is the relaxed rule used when an item's text yields no
// tokens at all: split the title on non-word characters and keep every
// piece of at least two characters, without stop-word filtering.
func (t *Tokenizer) TitleTokens(title string) []string {
	tokens := terms(t.title.Analyze([]byte(title)))
	if tokens == nil {
		return []string{}
	}
	return tokens
}

func terms(stream analysis.TokenStream) []string {
	if len(stream) == 0 {
		return nil
	}
	out := make([]string, len(stream))
	for i, tok := range stream {
		out[i] = string(tok.Term)
	}
	return out
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isHangul(r rune) bool {
	return r >= 0xAC00 && r <= 0xD7A3
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
