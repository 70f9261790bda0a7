// Package backfill fills in embeddings that ingestion could not produce.
//
// Briefs whose embedding calls failed are stored as partial with null
// vectors. A Backfiller walks the rows still missing an embedding for each
// target (briefs, chunks, sentences) in ID order, embeds them in batches with
// retry and normalization, and finally promotes every partial brief whose
// vectors are now complete.
package backfill
