package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
)

// =============================================================================
// Postgres Archive
// =============================================================================

// Archive mirrors closed field work into the municipal database. It is a
// secondary store: the service layer writes to it fire-and-forget, and a
// write failure never fails the user-facing operation.
//
// The schema is the reduced municipal one. A work site ("obra") row per
// case, keyed by protocol, and one field-report ("fiscalizacao") row per
// archived event carrying the observation text and an evidence photo URL.
type Archive struct {
	pool *pgxpool.Pool
}

// NewArchive creates an archive backed by the given connection pool.
func NewArchive(pool *pgxpool.Pool) *Archive {
	return &Archive{pool: pool}
}

// ArchivedReport is one field-report row as stored in the archive.
type ArchivedReport struct {
	ID          uuid.UUID
	WorkSiteID  uuid.UUID
	Protocol    string
	Observation string
	PhotoURL    string
	CreatedAt   time.Time
}

// ArchiveWorkSite upserts the work-site row for a case and returns its id.
// The protocol is the natural key; repeated archives of the same case reuse
// the existing row and refresh the description.
func (a *Archive) ArchiveWorkSite(ctx context.Context, insp *domain.Inspection) (uuid.UUID, error) {
	const op = "archive.work_site"

	var id uuid.UUID
	err := a.pool.QueryRow(ctx, `
		INSERT INTO obras (protocolo, nome, descricao)
		VALUES ($1, $2, $3)
		ON CONFLICT (protocolo)
		DO UPDATE SET nome = EXCLUDED.nome, descricao = EXCLUDED.descricao
		RETURNING id`,
		insp.Protocol, insp.Address, insp.Description,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, mapArchiveError(err, op)
	}
	return id, nil
}

// ArchiveReport stores one field-report row for the case, creating the
// work-site row first if needed. photoURL may be empty.
func (a *Archive) ArchiveReport(ctx context.Context, insp *domain.Inspection, observation, photoURL string) error {
	const op = "archive.report"

	siteID, err := a.ArchiveWorkSite(ctx, insp)
	if err != nil {
		return err
	}

	_, err = a.pool.Exec(ctx, `
		INSERT INTO fiscalizacoes (id, obra_id, observacao, foto_url)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), siteID, observation, photoURL,
	)
	if err != nil {
		return mapArchiveError(err, op)
	}
	return nil
}

// ListReports returns all archived field reports, newest first.
func (a *Archive) ListReports(ctx context.Context) ([]ArchivedReport, error) {
	const op = "archive.list_reports"

	rows, err := a.pool.Query(ctx, `
		SELECT f.id, f.obra_id, o.protocolo, f.observacao, f.foto_url, f.criado_em
		FROM fiscalizacoes f
		JOIN obras o ON o.id = f.obra_id
		ORDER BY f.criado_em DESC`)
	if err != nil {
		return nil, mapArchiveError(err, op)
	}
	defer rows.Close()

	var out []ArchivedReport
	for rows.Next() {
		var r ArchivedReport
		if err := rows.Scan(&r.ID, &r.WorkSiteID, &r.Protocol, &r.Observation, &r.PhotoURL, &r.CreatedAt); err != nil {
			return nil, mapArchiveError(err, op)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapArchiveError(err, op)
	}
	return out, nil
}

// mapArchiveError converts pgx errors into domain errors.
func mapArchiveError(err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: "registro não encontrado no arquivo"}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return domain.Conflict(op, "registro já existente no arquivo")
		case "23503": // foreign_key_violation
			return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: "obra não encontrada no arquivo", Err: err}
		}
	}
	return domain.Internal(err, op, "falha ao gravar no arquivo municipal")
}
