package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("repository: not found")

// AnalysisFilters defines list filters.
type AnalysisFilters struct {
	Search string // substring of the file name
	Limit  int    // 0 = no limit
}

// AnalysisRepo handles the history of completed analyses.
type AnalysisRepo struct {
	db *sql.DB
}

func NewAnalysisRepo(db *sql.DB) *AnalysisRepo { return &AnalysisRepo{db: db} }

func (r *AnalysisRepo) Save(ctx context.Context, a Analysis) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO analyses(id, file_name, media_type, engine, feature_count, gdt_count, features, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 engine=excluded.engine,
	 feature_count=excluded.feature_count,
	 gdt_count=excluded.gdt_count,
	 features=excluded.features;
	`, a.ID, a.FileName, a.MediaType, a.Engine, a.FeatureCount, a.GDTCount, string(a.Features), a.CreatedAt)
	return err
}

func (r *AnalysisRepo) List(ctx context.Context, f AnalysisFilters) ([]Analysis, error) {
	var where []string
	var args []interface{}

	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "LOWER(file_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}

	q := `SELECT id, file_name, media_type, engine, feature_count, gdt_count, features, created_at FROM analyses`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AnalysisRepo) Get(ctx context.Context, id string) (Analysis, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, file_name, media_type, engine, feature_count, gdt_count, features, created_at FROM analyses WHERE id = ?`, id)
	a, err := scanAnalysis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

func (r *AnalysisRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AnalysisRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(s scanner) (Analysis, error) {
	var a Analysis
	var features string
	if err := s.Scan(&a.ID, &a.FileName, &a.MediaType, &a.Engine, &a.FeatureCount, &a.GDTCount, &features, &a.CreatedAt); err != nil {
		return Analysis{}, err
	}
	a.Features = []byte(features)
	return a, nil
}
