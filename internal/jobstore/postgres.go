package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sergiomvj/faceblog/internal/model"
)

// PostgresStore persists jobs one row per job, with the steps log stored as a
// JSONB array to preserve append order. Update runs inside a transaction with
// a row-level lock, giving the same per-id atomicity as the in-memory store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const jobColumns = `id, tenant_ref, subdomain, spec, status, progress, steps, awaiting, deploy_url, error, started_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, job *model.ProvisioningJob) error {
	spec, steps, awaiting, err := marshalJob(job)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO provisioning_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		job.ID, job.TenantRef, job.Spec.Subdomain, spec, job.Status, job.Progress,
		steps, awaiting, job.DeployURL, job.Error, job.StartedAt, job.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSubdomainTaken
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.ProvisioningJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (s *PostgresStore) Update(ctx context.Context, id string, mutate func(*model.ProvisioningJob) error) (*model.ProvisioningJob, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE id = $1 FOR UPDATE`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	if err := mutate(job); err != nil {
		return nil, err
	}

	spec, steps, awaiting, err := marshalJob(job)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE provisioning_jobs
		 SET spec = $2, status = $3, progress = $4, steps = $5, awaiting = $6,
		     deploy_url = $7, error = $8, updated_at = $9
		 WHERE id = $1`,
		job.ID, spec, job.Status, job.Progress, steps, awaiting,
		job.DeployURL, job.Error, job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]model.ProvisioningJob, error) {
	query := `SELECT ` + jobColumns + ` FROM provisioning_jobs WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if filter.TenantRef != "" {
		query += fmt.Sprintf(` AND tenant_ref = $%d`, argIdx)
		args = append(args, filter.TenantRef)
		argIdx++
	}
	query += ` ORDER BY started_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.ProvisioningJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM provisioning_jobs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete job %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) FindByExternalRef(ctx context.Context, ref string) (*model.ProvisioningJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE awaiting->>'external_ref' = $1`, ref)
	return scanJob(row)
}

func marshalJob(job *model.ProvisioningJob) (spec, steps, awaiting []byte, err error) {
	spec, err = json.Marshal(job.Spec)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal spec: %w", err)
	}
	steps, err = json.Marshal(job.Steps)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal steps: %w", err)
	}
	if job.Awaiting != nil {
		awaiting, err = json.Marshal(job.Awaiting)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal awaiting: %w", err)
		}
	}
	return spec, steps, awaiting, nil
}

func scanJob(row pgx.Row) (*model.ProvisioningJob, error) {
	var j model.ProvisioningJob
	var subdomain string
	var spec, steps, awaiting []byte

	err := row.Scan(&j.ID, &j.TenantRef, &subdomain, &spec, &j.Status, &j.Progress,
		&steps, &awaiting, &j.DeployURL, &j.Error, &j.StartedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal(spec, &j.Spec); err != nil {
		return nil, fmt.Errorf("unmarshal spec: %w", err)
	}
	if err := json.Unmarshal(steps, &j.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if len(awaiting) > 0 {
		j.Awaiting = &model.Await{}
		if err := json.Unmarshal(awaiting, j.Awaiting); err != nil {
			return nil, fmt.Errorf("unmarshal awaiting: %w", err)
		}
	}
	return &j, nil
}
