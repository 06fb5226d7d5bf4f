// Package archive persists finished analysis results. It sits entirely
// outside the workflow engine: a run completes first, then its result may be
// archived, and nothing in the engine ever reads the archive back.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/textflow/pipeline"
)

// ErrNotFound is returned when no record exists for the given ID.
var ErrNotFound = errors.New("record not found")

// Record is one archived analysis result.
type Record struct {
	// ID is a generated unique identifier.
	ID string `json:"id"`

	// Text is the analyzed input.
	Text string `json:"text"`

	// Category is the normalized classification.
	Category string `json:"category"`

	// Classification is the model's raw classification answer.
	Classification string `json:"classification"`

	// Entities are the extracted named entities.
	Entities []string `json:"entities,omitempty"`

	// Summary is the produced summary, when the branch made one.
	Summary string `json:"summary,omitempty"`

	// Sentiment is the sentiment label, when the branch made one.
	Sentiment string `json:"sentiment,omitempty"`

	// Report is the final markdown report.
	Report string `json:"report,omitempty"`

	// CreatedAt is when the record was archived.
	CreatedAt time.Time `json:"created_at"`
}

// NewRecord builds an archive record from a finished analysis.
func NewRecord(text string, result *pipeline.Result) *Record {
	return &Record{
		ID:             uuid.NewString(),
		Text:           text,
		Category:       result.Category.String(),
		Classification: result.Classification,
		Entities:       result.Entities,
		Summary:        result.Summary,
		Sentiment:      result.Sentiment,
		Report:         result.Report,
		CreatedAt:      time.Now().UTC(),
	}
}

// Store persists analysis records.
type Store interface {
	// Save stores a record.
	Save(ctx context.Context, record *Record) error

	// Get retrieves a record by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first. A non-positive limit
	// returns everything.
	List(ctx context.Context, limit int) ([]*Record, error)

	// Delete removes a record by ID, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
