package badger

import (
	"encoding/binary"
	"fmt"
)

// Key prefixes for different artifact types
const (
	corpusPrefix      = "corpus:"
	lexicalModelKey   = "lexmod"
	lexicalRowPrefix  = "lexrow:"
	semanticModelKey  = "semmod"
	semanticVecPrefix = "semvec:"
	manifestKey       = "manifest"
)

// makeIndexedKey appends a big-endian index to prefix so that keys sort
// in corpus order.
func makeIndexedKey(prefix string, index int) []byte {
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// parseIndexedKey recovers the index from a key built by makeIndexedKey.
func parseIndexedKey(prefix string, key []byte) (int, error) {
	if len(key) != len(prefix)+8 || string(key[:len(prefix)]) != prefix {
		return 0, fmt.Errorf("malformed key %q for prefix %q", key, prefix)
	}
	return int(binary.BigEndian.Uint64(key[len(prefix):])), nil
}

func makeCorpusKey(index int) []byte {
	return makeIndexedKey(corpusPrefix, index)
}

func makeLexicalRowKey(index int) []byte {
	return makeIndexedKey(lexicalRowPrefix, index)
}

func makeSemanticVecKey(index int) []byte {
	return makeIndexedKey(semanticVecPrefix, index)
}
