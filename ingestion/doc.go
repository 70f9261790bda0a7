// Package ingestion turns brief PDFs into stored documents.
//
// A Pipeline owns a worker pool; each worker takes one source file through
// every stage:
//   - read the bytes and skip files whose content is unchanged since the last
//     successful run
//   - extract text, falling back to a second extractor
//   - parse path metadata and link the brief to its case
//   - segment the text and extract authorities
//   - summarize and embed, retrying with backoff
//   - persist the document in a single store transaction and checkpoint it
//
// Analysis or embedding failures leave the affected fields empty and mark the
// brief partial; the backfill package fills them in later. Storage failures
// fail one document and never the batch. Chaining briefs into conversations
// is a separate pass and does not run here.
package ingestion
