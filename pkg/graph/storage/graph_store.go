package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/athapong/codegraph/pkg/graph"
)

// AnalysisDocument is the structured output of a run: every entity with its
// identity, kind, properties and relationships, targets resolved or carrying
// their terminal markers. It is consumed by the loader or by any external
// reporting tool.
type AnalysisDocument struct {
	RunID       string          `json:"run_id"`
	Root        string          `json:"root"`
	GeneratedAt time.Time       `json:"generated_at"`
	Entities    []*graph.Entity `json:"entities"`
	Report      *graph.Report   `json:"report,omitempty"`
}

// NewAnalysisDocument snapshots a frozen registry. Entities are ordered by
// identity key so the document does not depend on scan order.
func NewAnalysisDocument(registry *graph.Registry, report *graph.Report) *AnalysisDocument {
	doc := &AnalysisDocument{
		GeneratedAt: time.Now(),
		Entities:    registry.SortedEntities(),
		Report:      report,
	}
	if report != nil {
		doc.RunID = report.RunID
		doc.Root = report.Root
	}
	return doc
}

// GraphStore defines an interface for persisting analysis documents.
type GraphStore interface {
	// StoreGraph persists an analysis document
	StoreGraph(ctx context.Context, doc *AnalysisDocument) error

	// LoadGraph loads an analysis document from storage
	LoadGraph(ctx context.Context) (*AnalysisDocument, error)
}

// JSONGraphStore implements GraphStore using JSON files
type JSONGraphStore struct {
	filePath string
}

// NewJSONGraphStore creates a new JSON graph store
func NewJSONGraphStore(filePath string) *JSONGraphStore {
	return &JSONGraphStore{
		filePath: filePath,
	}
}

// StoreGraph stores the analysis document as JSON
func (s *JSONGraphStore) StoreGraph(ctx context.Context, doc *AnalysisDocument) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// LoadGraph loads an analysis document from a JSON file
func (s *JSONGraphStore) LoadGraph(ctx context.Context) (*AnalysisDocument, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}

	var doc AnalysisDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}
