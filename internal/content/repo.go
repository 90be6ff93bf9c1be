package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/greenfield-academy/website/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `id, kind, title, body, data, is_active, created_at, updated_at`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var kind string
	var data []byte
	if err := row.Scan(&r.ID, &kind, &r.Title, &r.Body, &data, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Kind = Kind(kind)
	r.Data = data
	return &r, nil
}

func (r *Repo) Add(ctx context.Context, record *Record) (*Record, error) {
	if record.Title == "" {
		return nil, ErrInvalidRecord
	}
	data := record.Data
	if len(data) == 0 {
		data = emptyData
	}

	added, err := scanRecord(r.db.QueryRow(
		ctx,
		`INSERT INTO content_record (kind, title, body, data, is_active)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+recordColumns+`;`,
		string(record.Kind), record.Title, record.Body, []byte(data), record.IsActive,
	))
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("insert content record: %w", err)
	}
	return added, nil
}

// AddSubscriber inserts a subscriber, or reactivates a soft deleted one with
// the same address. An address that is already active is ErrAlreadySubscribed.
func (r *Repo) AddSubscriber(ctx context.Context, email string) (*Record, error) {
	if email == "" {
		return nil, ErrInvalidRecord
	}

	record, err := scanRecord(r.db.QueryRow(
		ctx,
		`INSERT INTO content_record (kind, title, data, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (lower(title)) WHERE kind = 'subscribers'
		DO UPDATE SET is_active = TRUE, updated_at = now()
		WHERE NOT content_record.is_active
		RETURNING `+recordColumns+`;`,
		string(KindSubscribers), email, []byte(emptyData),
	))
	if err != nil {
		// conflict with an active row: nothing inserted, nothing updated
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}
	return record, nil
}

func (r *Repo) Get(ctx context.Context, kind Kind, id int) (*Record, error) {
	record, err := scanRecord(r.db.QueryRow(
		ctx,
		`SELECT `+recordColumns+` FROM content_record WHERE kind = $1 AND id = $2;`,
		string(kind), id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("select content record: %w", err)
	}
	return record, nil
}

// List returns the records of a kind, newest first.
func (r *Repo) List(ctx context.Context, kind Kind, activeOnly bool) ([]Record, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT `+recordColumns+` FROM content_record
		WHERE kind = $1 AND (is_active OR NOT $2)
		ORDER BY created_at DESC, id DESC;`,
		string(kind), activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list content records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *Repo) Update(ctx context.Context, record *Record) (*Record, error) {
	if record.Title == "" {
		return nil, ErrInvalidRecord
	}
	data := record.Data
	if len(data) == 0 {
		data = emptyData
	}

	updated, err := scanRecord(r.db.QueryRow(
		ctx,
		`UPDATE content_record SET title = $1, body = $2, data = $3, is_active = $4, updated_at = now()
		WHERE kind = $5 AND id = $6 RETURNING `+recordColumns+`;`,
		record.Title, record.Body, []byte(data), record.IsActive, string(record.Kind), record.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("update content record: %w", err)
	}
	return updated, nil
}

// Deactivate is the soft delete: the row stays, it is only hidden from the
// public site.
func (r *Repo) Deactivate(ctx context.Context, kind Kind, id int) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE content_record SET is_active = FALSE, updated_at = now() WHERE kind = $1 AND id = $2;`,
		string(kind), id,
	)
	if err != nil {
		return fmt.Errorf("deactivate content record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
