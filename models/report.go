package models

// IngestReport summarizes one ingestion run for a single source document.
// Re-running ingest on unchanged input yields ChunksAdded == 0 and
// ChunksRemoved == 0 with every chunk counted as skipped.
type IngestReport struct {
	Source        string `json:"source"`
	Collection    string `json:"collection"`
	ChunksAdded   int    `json:"chunks_added"`
	ChunksSkipped int    `json:"chunks_skipped"`
	ChunksRemoved int    `json:"chunks_removed"`
	// Error carries a per-file failure during directory ingestion; the
	// batch keeps going and the failure is reported here.
	Error string `json:"error,omitempty"`
}
