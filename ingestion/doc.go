// Package ingestion provides pipeline orchestration for indexing documents.
//
// The Pipeline type manages the ingestion workflow for a batch of files:
//   - Loading each file through the loader registry on a worker pool
//   - Splitting the loaded documents into overlapping chunks
//   - Deriving stable chunk ids and upserting them into the index
//   - Recording every ingested file in the source ledger
//
// A batch is all or nothing up to the upsert: an unsupported extension, an
// unreadable file or an embedding failure aborts the call before anything is
// written. Failing to make the upserted entries durable is reported as a
// warning on the Result instead.
package ingestion
