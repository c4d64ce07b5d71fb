package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/scandraw/internal/database"
	"github.com/jask/scandraw/internal/database/repository"
	"github.com/jask/scandraw/internal/feature"
	"github.com/jask/scandraw/internal/session"
)

// HistoryService keeps completed analyses so they can be reopened without
// another upload.
type HistoryService struct {
	Analyses *repository.AnalysisRepo
	// Now defaults to database.Now.
	Now func() time.Time
}

// Entry is one past analysis.
type Entry struct {
	ID           string
	FileName     string
	MediaType    string
	Engine       string
	FeatureCount int
	GDTCount     int
	CreatedAt    time.Time
	Features     []feature.Feature
}

func (s *HistoryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return database.Now()
}

// Record stores a completed analysis under a fresh id.
func (s *HistoryService) Record(ctx context.Context, file session.File, engine string, features []feature.Feature) error {
	if s.Analyses == nil {
		return fmt.Errorf("history: repository not configured")
	}
	if features == nil {
		features = []feature.Feature{}
	}
	data, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("history: encode features: %w", err)
	}
	g := feature.Classify(features)
	return s.Analyses.Save(ctx, repository.Analysis{
		ID:           uuid.NewString(),
		FileName:     file.Name,
		MediaType:    file.ContentType,
		Engine:       engine,
		FeatureCount: g.Len(),
		GDTCount:     len(g.GDT),
		Features:     data,
		CreatedAt:    s.now(),
	})
}

// Recent lists the newest analyses whose file name contains search.
// Features are not decoded; use Load for that.
func (s *HistoryService) Recent(ctx context.Context, search string, limit int) ([]Entry, error) {
	rows, err := s.Analyses.List(ctx, repository.AnalysisFilters{Search: search, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, entryFrom(r))
	}
	return out, nil
}

// Load returns one analysis with its features.
func (s *HistoryService) Load(ctx context.Context, id string) (Entry, error) {
	row, err := s.Analyses.Get(ctx, id)
	if err != nil {
		return Entry{}, fmt.Errorf("history: load %s: %w", id, err)
	}
	e := entryFrom(row)
	if err := json.Unmarshal(row.Features, &e.Features); err != nil {
		return Entry{}, fmt.Errorf("history: decode %s: %w", id, err)
	}
	return e, nil
}

func (s *HistoryService) Delete(ctx context.Context, id string) error {
	if err := s.Analyses.Delete(ctx, id); err != nil {
		return fmt.Errorf("history: delete %s: %w", id, err)
	}
	return nil
}

func entryFrom(r repository.Analysis) Entry {
	return Entry{
		ID:           r.ID,
		FileName:     r.FileName,
		MediaType:    r.MediaType,
		Engine:       r.Engine,
		FeatureCount: r.FeatureCount,
		GDTCount:     r.GDTCount,
		CreatedAt:    r.CreatedAt,
	}
}
