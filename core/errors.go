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

import "errors"

// Recommendation engine errors
var (
	// ErrModelBuild indicates the offline build could not produce a vector space.
	ErrModelBuild = errors.New("model build failed")

	// ErrModelsNotReady indicates an artifact is missing, failed to load, or is misaligned.
	ErrModelsNotReady = errors.New("models not ready")

	// ErrInvalidReference indicates a reference index or title could not be resolved.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrNoCandidates indicates every item was excluded by zero-vector rules.
	ErrNoCandidates = errors.New("no candidates")

	// ErrEmptyQuery indicates blank user input.
	ErrEmptyQuery = errors.New("empty query")
)

// Table validation errors
var (
	// ErrInvalidEntry indicates a CorpusEntry failed validation.
	ErrInvalidEntry = errors.New("invalid corpus entry")

	// ErrEmptyTitle indicates the Title field is empty after normalization.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrMissingColumn indicates the input table lacks a required column.
	ErrMissingColumn = errors.New("missing required column")

	// ErrDuplicateTitle indicates two entries share a normalized title.
	ErrDuplicateTitle = errors.New("duplicate title")
)
