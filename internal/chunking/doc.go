// Package chunking splits extracted document text into fragments that fit the
// embedding model's token budget.
//
// Splitting runs in two passes. A strategy pass produces candidate fragments:
// "recursive" uses langchaingo's recursive character splitter, "structural"
// splits at numbered, lettered, or roman-numeral headings. An enforcement pass
// then re-slices any fragment whose token count exceeds the configured limit
// into overlapping token windows, so no fragment ever reaches the embedding
// API oversized.
//
// Token counting goes through the Codec interface (tiktoken cl100k_base in
// production) so tests can substitute a deterministic fake.
package chunking
