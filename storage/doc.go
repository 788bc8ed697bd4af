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

// Package storage persists the artifacts of an offline build.
//
// An ArtifactRepository stores four things: the token corpus, the lexical
// space (model header plus one sparse row per entry), the word vectors and
// the manifest that ties them together. Values are encoded with mus-go by
// the helpers in serialization.go.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the interface:
//
//	repo, err := badger.NewRepository(path)  // returns storage.ArtifactRepository
//
// # Usage
//
//	repo, err := badger.NewRepository("/path/to/model")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//
// # Consistency
//
// Saving a corpus removes the manifest, and a build writes the manifest
// last. A manifest therefore only exists when every artifact it describes
// has been written. Loaders check that indexed keys are contiguous and
// return ErrCorrupt otherwise.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
