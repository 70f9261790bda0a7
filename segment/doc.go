// Package segment decomposes brief text into retrievable units.
//
// A Segmenter produces, from one document's full text:
//   - chunks of roughly equal word budget, labeled with the brief section they fall in
//   - sentences within each chunk, never split inside a citation or abbreviation
//   - n-gram phrases aggregated per document with a first-occurrence reference
//   - the numbered argument outline of the ARGUMENT section
//   - a word occurrence index per chunk
//
// Chunks carry byte spans into the source text. Everything outside the spans
// is whitespace, so the source can be rebuilt from the chunks.
package segment
