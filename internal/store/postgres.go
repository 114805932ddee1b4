package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/kntaj/ocrflow/pkg/contracts"
	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore is the production MetadataStore backed by jackc/pgx,
// with pressly/goose applying schema migrations at startup.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to url. It does not apply migrations; call
// Migrate for that.
func NewPostgresStore(ctx context.Context, url string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate applies any pending goose migrations embedded in migrations/.
func (s *PostgresStore) Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info().Msg("metadata store migrations applied")
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, tenant_id, source_path, content_type, page_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.TenantID, d.SourcePath, d.ContentType, d.PageCount, d.CreatedAt, d.UpdatedAt)
	return err
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var d models.Document
	var extractedText, selectedEngine, selectedRunID sql.NullString
	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, source_path, content_type, page_count,
			extracted_text, selected_engine, selected_run_id, last_ocr_at, created_at, updated_at
		FROM documents WHERE id = $1`, id).
		Scan(&d.ID, &d.TenantID, &d.SourcePath, &d.ContentType, &d.PageCount,
			&extractedText, &selectedEngine, &selectedRunID, &d.LastOCRAt, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &contracts.ErrNotFound{Entity: "document", Key: id}
	}
	if err != nil {
		return nil, err
	}
	d.ExtractedText = extractedText.String
	d.SelectedEngine = models.OCREngineType(selectedEngine.String)
	d.SelectedRunID = selectedRunID.String
	return &d, nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, d *models.Document) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET extracted_text = $2, selected_engine = NULLIF($3, ''), selected_run_id = NULLIF($4, ''), last_ocr_at = $5
		WHERE id = $1`,
		d.ID, d.ExtractedText, string(d.SelectedEngine), d.SelectedRunID, d.LastOCRAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &contracts.ErrNotFound{Entity: "document", Key: d.ID}
	}
	return nil
}

func (s *PostgresStore) CreateExecution(ctx context.Context, e *models.WorkflowExecution) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO workflow_executions (id, document_id, workflow_id, state, selected_run_id, error, started_at, completed_at, total_timeout_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)`,
		e.ID, e.DocumentID, e.WorkflowID, e.State, e.SelectedRunID, e.Error, e.StartedAt, e.CompletedAt, e.TotalTimeoutAt)
	return err
}

func (s *PostgresStore) UpdateExecution(ctx context.Context, e *models.WorkflowExecution) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE workflow_executions
		SET state = $2, selected_run_id = NULLIF($3, ''), error = NULLIF($4, ''), completed_at = $5
		WHERE id = $1`,
		e.ID, e.State, e.SelectedRunID, e.Error, e.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &contracts.ErrNotFound{Entity: "execution", Key: e.ID}
	}
	return nil
}

func (s *PostgresStore) GetExecution(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	var e models.WorkflowExecution
	var selected, execErr sql.NullString
	err := s.pool.QueryRow(ctx, `
		SELECT id, document_id, workflow_id, state, selected_run_id, error, started_at, completed_at, total_timeout_at
		FROM workflow_executions WHERE id = $1`, id).
		Scan(&e.ID, &e.DocumentID, &e.WorkflowID, &e.State, &selected, &execErr, &e.StartedAt, &e.CompletedAt, &e.TotalTimeoutAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &contracts.ErrNotFound{Entity: "execution", Key: id}
	}
	if err != nil {
		return nil, err
	}
	e.SelectedRunID = selected.String
	e.Error = execErr.String
	return &e, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, r *models.Run) error {
	var costCents sql.NullInt64
	if r.CostCents != nil {
		costCents = sql.NullInt64{Int64: int64(*r.CostCents), Valid: true}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, execution_id, document_id, engine_type, engine_name, status,
			error_category, error_message, latency_ms, cost_cents, raw_response_path, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.ID, r.ExecutionID, r.DocumentID, r.EngineType, r.EngineName, r.Status,
		string(r.ErrorCategory), r.ErrorMessage, r.LatencyMs, costCents, r.RawResponsePath, r.StartedAt, r.CompletedAt)
	return err
}

func (s *PostgresStore) UpdateRun(ctx context.Context, r *models.Run) error {
	var costCents sql.NullInt64
	if r.CostCents != nil {
		costCents = sql.NullInt64{Int64: int64(*r.CostCents), Valid: true}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE runs SET status = $2, error_category = $3, error_message = $4,
			latency_ms = $5, cost_cents = $6, raw_response_path = $7, completed_at = $8
		WHERE id = $1`,
		r.ID, r.Status, string(r.ErrorCategory), r.ErrorMessage, r.LatencyMs, costCents, r.RawResponsePath, r.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &contracts.ErrNotFound{Entity: "run", Key: r.ID}
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	runs, err := s.queryRuns(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, &contracts.ErrNotFound{Entity: "run", Key: id}
	}
	return &runs[0], nil
}

func (s *PostgresStore) ListRunsForDocument(ctx context.Context, documentID string) ([]models.Run, error) {
	return s.queryRuns(ctx, "WHERE document_id = $1", documentID)
}

func (s *PostgresStore) ListRunsForExecution(ctx context.Context, executionID string) ([]models.Run, error) {
	return s.queryRuns(ctx, "WHERE execution_id = $1", executionID)
}

func (s *PostgresStore) queryRuns(ctx context.Context, where string, arg string) ([]models.Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, execution_id, document_id, engine_type, engine_name, status,
			error_category, error_message, latency_ms, cost_cents, raw_response_path, started_at, completed_at
		FROM runs `+where, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		var r models.Run
		var costCents sql.NullInt64
		var errCategory, errMessage, rawPath sql.NullString
		if err := rows.Scan(&r.ID, &r.ExecutionID, &r.DocumentID, &r.EngineType, &r.EngineName, &r.Status,
			&errCategory, &errMessage, &r.LatencyMs, &costCents, &rawPath, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, err
		}
		r.ErrorCategory = models.ErrorCategory(errCategory.String)
		r.ErrorMessage = errMessage.String
		r.RawResponsePath = rawPath.String
		if costCents.Valid {
			v := int(costCents.Int64)
			r.CostCents = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }
func (s *PostgresStore) Close() error                   { s.pool.Close(); return nil }

var _ contracts.MetadataStore = (*PostgresStore)(nil)
