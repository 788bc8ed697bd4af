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

package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
	"github.com/poiesic/gamerec/semantic"
	"github.com/poiesic/gamerec/storage"
)

// ArtifactRepository implements storage.ArtifactRepository for BadgerDB.
type ArtifactRepository struct {
	backend     *Backend
	ownsBackend bool
}

var _ storage.ArtifactRepository = (*ArtifactRepository)(nil)

// NewArtifactRepository creates an ArtifactRepository on an open
// backend. Closing the repository leaves the backend open.
func NewArtifactRepository(backend *Backend) *ArtifactRepository {
	return &ArtifactRepository{backend: backend}
}

// NewRepository opens (or creates) a database directory and returns a
// repository that owns it.
func NewRepository(path string, opts ...BackendOption) (storage.ArtifactRepository, error) {
	backend, err := OpenBackend(path, false, opts...)
	if err != nil {
		return nil, err
	}
	return &ArtifactRepository{backend: backend, ownsBackend: true}, nil
}

// Close closes the backend if the repository opened it.
func (r *ArtifactRepository) Close() error {
	if r.ownsBackend {
		return r.backend.Close()
	}
	return nil
}

// SaveCorpus replaces the stored corpus. Any previous manifest is
// removed, since it no longer describes the stored artifacts.
func (r *ArtifactRepository) SaveCorpus(ctx context.Context, entries []core.CorpusEntry) error {
	if err := r.backend.DropPrefix([]byte(corpusPrefix), []byte(manifestKey)); err != nil {
		return err
	}
	return r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for i, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeCorpusKey(i), storage.MarshalCorpusEntry(entry)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadCorpus returns the stored corpus in build order.
func (r *ArtifactRepository) LoadCorpus(ctx context.Context) ([]core.CorpusEntry, error) {
	var entries []core.CorpusEntry
	err := r.backend.Scan(ctx, []byte(corpusPrefix), func(key, value []byte) error {
		if err := expectIndex(corpusPrefix, key, len(entries)); err != nil {
			return err
		}
		entry, err := storage.UnmarshalCorpusEntry(value)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: corpus", storage.ErrNotFound)
	}
	return entries, nil
}

// SaveLexical replaces the stored lexical model and its rows.
func (r *ArtifactRepository) SaveLexical(ctx context.Context, space *lexical.Space) error {
	if err := r.backend.DropPrefix([]byte(lexicalRowPrefix)); err != nil {
		return err
	}
	model := space.Model()
	header := storage.LexicalHeader{
		Terms:       model.Terms(),
		IDF:         model.IDF(),
		SublinearTF: model.SublinearTF(),
		Rows:        space.Len(),
	}
	return r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		if err := wb.Set([]byte(lexicalModelKey), storage.MarshalLexicalHeader(header)); err != nil {
			return err
		}
		for i, row := range space.Rows() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := wb.Set(makeLexicalRowKey(i), storage.MarshalLexicalRow(row)); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadLexical returns the stored lexical model and rows.
func (r *ArtifactRepository) LoadLexical(ctx context.Context) (*lexical.Space, error) {
	data, err := r.backend.Get([]byte(lexicalModelKey))
	if err != nil {
		return nil, fmt.Errorf("lexical model: %w", err)
	}
	header, err := storage.UnmarshalLexicalHeader(data)
	if err != nil {
		return nil, err
	}

	rows := make([]lexical.Vector, 0, header.Rows)
	err = r.backend.Scan(ctx, []byte(lexicalRowPrefix), func(key, value []byte) error {
		if err := expectIndex(lexicalRowPrefix, key, len(rows)); err != nil {
			return err
		}
		row, err := storage.UnmarshalLexicalRow(value)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rows) != header.Rows {
		return nil, fmt.Errorf("%w: lexical header lists %d rows, found %d", storage.ErrCorrupt, header.Rows, len(rows))
	}

	model, err := lexical.NewModel(header.Terms, header.IDF, header.SublinearTF)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
	}
	space, err := lexical.NewSpace(model, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
	}
	return space, nil
}

// SaveSemantic replaces the stored word vectors.
func (r *ArtifactRepository) SaveSemantic(ctx context.Context, model *semantic.Model) error {
	if err := r.backend.DropPrefix([]byte(semanticVecPrefix)); err != nil {
		return err
	}
	header := storage.SemanticHeader{Words: model.Len(), Dimension: model.Dimension()}
	return r.backend.WithBatch(func(wb *badger.WriteBatch) error {
		if err := wb.Set([]byte(semanticModelKey), storage.MarshalSemanticHeader(header)); err != nil {
			return err
		}
		for i, word := range model.Words() {
			if err := ctx.Err(); err != nil {
				return err
			}
			vec, _ := model.Vector(word)
			value := storage.MarshalWordVector(storage.WordVector{Word: word, Vector: vec})
			if err := wb.Set(makeSemanticVecKey(i), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSemantic returns the stored word vectors.
func (r *ArtifactRepository) LoadSemantic(ctx context.Context) (*semantic.Model, error) {
	data, err := r.backend.Get([]byte(semanticModelKey))
	if err != nil {
		return nil, fmt.Errorf("semantic model: %w", err)
	}
	header, err := storage.UnmarshalSemanticHeader(data)
	if err != nil {
		return nil, err
	}

	words := make([]string, 0, header.Words)
	vectors := make([][]float32, 0, header.Words)
	err = r.backend.Scan(ctx, []byte(semanticVecPrefix), func(key, value []byte) error {
		if err := expectIndex(semanticVecPrefix, key, len(words)); err != nil {
			return err
		}
		wv, err := storage.UnmarshalWordVector(value)
		if err != nil {
			return err
		}
		if len(wv.Vector) != header.Dimension {
			return fmt.Errorf("%w: %q has dimension %d, header says %d", storage.ErrCorrupt, wv.Word, len(wv.Vector), header.Dimension)
		}
		words = append(words, wv.Word)
		vectors = append(vectors, wv.Vector)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(words) != header.Words {
		return nil, fmt.Errorf("%w: semantic header lists %d words, found %d", storage.ErrCorrupt, header.Words, len(words))
	}

	model, err := semantic.NewModel(words, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
	}
	return model, nil
}

// SaveManifest records the manifest of a completed build.
func (r *ArtifactRepository) SaveManifest(ctx context.Context, manifest core.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.backend.Set([]byte(manifestKey), storage.MarshalManifest(manifest))
}

// LoadManifest returns the manifest of the last completed build.
func (r *ArtifactRepository) LoadManifest(ctx context.Context) (core.Manifest, error) {
	if err := ctx.Err(); err != nil {
		return core.Manifest{}, err
	}
	data, err := r.backend.Get([]byte(manifestKey))
	if err != nil {
		return core.Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	return storage.UnmarshalManifest(data)
}

func expectIndex(prefix string, key []byte, want int) error {
	got, err := parseIndexedKey(prefix, key)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrCorrupt, err)
	}
	if got != want {
		return fmt.Errorf("%w: %s gap, expected index %d, found %d", storage.ErrCorrupt, prefix, want, got)
	}
	return nil
}
