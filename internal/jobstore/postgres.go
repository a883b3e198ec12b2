package jobstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trunov/converthub/internal/entities"
)

// Postgres is the durable JobStore. It persists exactly the Job fields and
// enforces the state machine in the UPDATE conditions, so a restarted
// service resumes from the same state with no hidden bookkeeping.
type Postgres struct {
	pool    *pgxpool.Pool
	updates chan entities.Job
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{
		pool:    pool,
		updates: make(chan entities.Job, 100),
	}, nil
}

var _ JobStore = (*Postgres)(nil)

const jobColumns = `id, status, progress, source_format, destination_format,
	input_hash, input_path, output_path, error_message, method_used,
	original_filename, created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, job *entities.Job) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO jobs (id, status, progress, source_format, destination_format,
			input_hash, input_path, original_filename, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, $5, $6, $7, now(), now())`,
		job.ID, entities.StatusPending, job.SourceFormat, job.DestinationFormat,
		job.InputHash, job.InputPath, job.OriginalFilename)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (entities.Job, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return p.scanJob(row, id)
}

func (p *Postgres) List(ctx context.Context) ([]entities.Job, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []entities.Job
	for rows.Next() {
		job, err := p.scanJob(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func (p *Postgres) Delete(ctx context.Context, id string) (entities.Job, error) {
	row := p.pool.QueryRow(ctx, `DELETE FROM jobs WHERE id = $1 RETURNING `+jobColumns, id)
	return p.scanJob(row, id)
}

func (p *Postgres) MarkConverting(ctx context.Context, id string) error {
	return p.transition(ctx, id, `
		UPDATE jobs SET status = 'converting', progress = 0, updated_at = now()
		WHERE id = $1 AND status = 'pending' RETURNING `+jobColumns)
}

func (p *Postgres) SetProgress(ctx context.Context, id string, progress int) error {
	if progress > 100 {
		progress = 100
	}
	return p.transition(ctx, id, `
		UPDATE jobs SET progress = GREATEST(progress, $2), updated_at = now()
		WHERE id = $1 AND status = 'converting' RETURNING `+jobColumns, progress)
}

func (p *Postgres) Complete(ctx context.Context, id, outputPath, methodUsed string) error {
	return p.transition(ctx, id, `
		UPDATE jobs SET status = 'completed', progress = 100, output_path = $2,
			method_used = $3, updated_at = now()
		WHERE id = $1 AND status = 'converting' RETURNING `+jobColumns, outputPath, methodUsed)
}

func (p *Postgres) Fail(ctx context.Context, id, reason string) error {
	return p.transition(ctx, id, `
		UPDATE jobs SET status = 'error', error_message = $2, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'converting') RETURNING `+jobColumns, reason)
}

func (p *Postgres) CountByStatus(ctx context.Context) (map[entities.JobStatus]int, error) {
	rows, err := p.pool.Query(ctx, `SELECT status, count(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	counts := make(map[entities.JobStatus]int)
	for rows.Next() {
		var status entities.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (p *Postgres) Updates() <-chan entities.Job { return p.updates }

func (p *Postgres) Close() { p.pool.Close() }

// transition runs a guarded UPDATE. Zero matched rows means either the job
// is gone or the guard rejected the transition; the distinction matters to
// callers, so a follow-up read decides between NotFound and TerminalState.
func (p *Postgres) transition(ctx context.Context, id, query string, args ...any) error {
	row := p.pool.QueryRow(ctx, query, append([]any{id}, args...)...)
	job, err := p.scanJob(row, id)
	if err == nil {
		select {
		case p.updates <- job:
		default:
		}
		return nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return err
	}
	current, getErr := p.Get(ctx, id)
	if getErr != nil {
		return getErr
	}
	if current.Status.Terminal() {
		return fmt.Errorf("job %s (%s): %w", id, current.Status, ErrTerminalState)
	}
	return fmt.Errorf("job %s: transition rejected from %s", id, current.Status)
}

func (p *Postgres) scanJob(row pgx.Row, id string) (entities.Job, error) {
	var job entities.Job
	var outputPath, errMsg, methodUsed, originalFilename *string
	err := row.Scan(&job.ID, &job.Status, &job.Progress, &job.SourceFormat,
		&job.DestinationFormat, &job.InputHash, &job.InputPath, &outputPath,
		&errMsg, &methodUsed, &originalFilename, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Job{}, fmt.Errorf("job %s: %w", id, entities.ErrNotFound)
	}
	if err != nil {
		return entities.Job{}, fmt.Errorf("scan job: %w", err)
	}
	if outputPath != nil {
		job.OutputPath = *outputPath
	}
	if errMsg != nil {
		job.Error = *errMsg
	}
	if methodUsed != nil {
		job.MethodUsed = *methodUsed
	}
	if originalFilename != nil {
		job.OriginalFilename = *originalFilename
	}
	return job, nil
}
