package model

// ProcessJob is the queue message that triggers one background pipeline
// run. It carries only identifiers; the run re-reads the document and the
// owner's plan fresh when it starts.
type ProcessJob struct {
	DocumentID string `json:"document_id"`
	UserID     uint   `json:"user_id"`
	Language   string `json:"language"`
}
