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

// Package search answers recommendation queries over a built corpus.
//
// A Resolver maps raw input onto either a corpus reference (title match)
// or a keyword. The Recommender then ranks candidates:
//   - title queries fuse lexical and semantic cosine similarity,
//     alpha*lexical + (1-alpha)*semantic, excluding the reference item
//     and every item whose lexical row or sentence vector is zero
//   - keyword queries use lexical similarity only and keep items with a
//     strictly positive score
//
// Ranked candidates are truncated to the top K and, when at least
// SampleSize remain, a uniform random subset of SampleSize is returned.
// Failures are reported as a core.Reason on the result, never as errors.
//
// The Dispatcher runs queries on a worker pool and delivers each result
// exactly once on a channel.
package search
