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

package search

import "errors"

var (
	// ErrMisaligned is returned when the corpus and lexical rows differ in length.
	ErrMisaligned = errors.New("corpus and lexical space are not aligned")

	// ErrInvalidOption is returned for out-of-range ranking parameters.
	ErrInvalidOption = errors.New("invalid recommender option")

	// ErrRecommenderRequired is returned when a dispatcher has no recommender.
	ErrRecommenderRequired = errors.New("recommender required")

	// ErrDispatcherClosed is returned when submitting to a released dispatcher.
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)
