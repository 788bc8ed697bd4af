// Package build runs the offline model build.
//
// A Pipeline reads the catalog table and carries it through five stages:
//   - load: parse the CSV and normalize titles
//   - tokenize: turn every row into a corpus entry on a worker pool
//   - lexical: fit the TF-IDF space
//   - semantic: train word vectors on the token corpus
//   - persist: write corpus, both spaces and finally the manifest
//
// Any failure aborts the build and is returned as a *StageError naming the
// stage. Tokenization results are placed by row index, so the corpus order
// matches the table regardless of pool scheduling.
package build
