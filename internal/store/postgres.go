package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// lockClassRubric namespaces the per-subject advisory locks so they cannot
// collide with other advisory-lock users of the same database.
const lockClassRubric = 1381520978

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// EnsureSchema creates the ledger tables if they do not exist. The
// component_type CHECK constraint enforces the category enumeration at the
// storage boundary, independent of application-level validation.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS grade_components (
			id               BIGSERIAL PRIMARY KEY,
			subject_id       BIGINT NOT NULL,
			component_type   TEXT NOT NULL CHECK (component_type IN
				('homework', 'quiz', 'report', 'project', 'exam',
				 'midterm', 'final', 'lab_report', 'activity', 'seminar')),
			component_name    TEXT NOT NULL,
			max_score         NUMERIC(5,2) NOT NULL DEFAULT 100,
			weight_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
			display_order     INTEGER NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create grade_components: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_grade_components_subject
			ON grade_components (subject_id, display_order, component_type, id)`)
	if err != nil {
		return fmt.Errorf("index grade_components: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rubric_events (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			subject_id BIGINT NOT NULL,
			action     TEXT NOT NULL,
			actor      TEXT,
			payload    JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create rubric_events: %w", err)
	}
	return nil
}

const componentColumns = `id, subject_id, component_type, component_name,
	max_score, weight_percentage, display_order, created_at, updated_at`

func scanComponent(row pgx.Row) (*GradeComponent, error) {
	c := &GradeComponent{}
	err := row.Scan(
		&c.ID, &c.SubjectID, &c.Type, &c.Name,
		&c.MaxScore, &c.Weight, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanComponents(rows pgx.Rows) ([]*GradeComponent, error) {
	var out []*GradeComponent
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TotalWeight(ctx context.Context, subjectID int64) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(weight_percentage), 0)
		FROM grade_components WHERE subject_id = $1`, subjectID,
	).Scan(&total)
	return total, err
}

func (s *PostgresStore) ComponentsOf(ctx context.Context, subjectID int64) ([]*GradeComponent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+componentColumns+`
		FROM grade_components WHERE subject_id = $1
		ORDER BY display_order, component_type, id`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComponents(rows)
}

func (s *PostgresStore) CountOfType(ctx context.Context, subjectID int64, t ComponentType) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM grade_components
		WHERE subject_id = $1 AND component_type = $2`, subjectID, t,
	).Scan(&n)
	return n, err
}

func (s *PostgresStore) GetComponent(ctx context.Context, id int64) (*GradeComponent, error) {
	c, err := scanComponent(s.pool.QueryRow(ctx, `
		SELECT `+componentColumns+`
		FROM grade_components WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) WeightSummary(ctx context.Context, subjectID int64) (*SubjectWeightSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT component_type, COUNT(*), SUM(weight_percentage)
		FROM grade_components WHERE subject_id = $1
		GROUP BY component_type
		ORDER BY MIN(display_order), component_type`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &SubjectWeightSummary{SubjectID: subjectID}
	for rows.Next() {
		var cw CategoryWeight
		if err := rows.Scan(&cw.Type, &cw.Count, &cw.TotalWeight); err != nil {
			return nil, err
		}
		summary.Categories = append(summary.Categories, cw)
		summary.TotalWeight += cw.TotalWeight
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	summary.Remaining = 100 - summary.TotalWeight
	return summary, nil
}

// withSubjectLock runs fn inside one transaction holding the subject's
// advisory lock, so a ceiling check and the writes that follow it cannot
// interleave with another caller's.
func (s *PostgresStore) withSubjectLock(ctx context.Context, subjectID int64, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`,
		int32(lockClassRubric), int32(subjectID)); err != nil {
		return fmt.Errorf("lock subject %d: %w", subjectID, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func subjectTotalTx(ctx context.Context, tx pgx.Tx, subjectID int64) (float64, error) {
	var total float64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(weight_percentage), 0)
		FROM grade_components WHERE subject_id = $1`, subjectID,
	).Scan(&total)
	return total, err
}

func (s *PostgresStore) AllocateComponents(ctx context.Context, subjectID int64, t ComponentType, fn AllocationFn) ([]*GradeComponent, error) {
	if !t.Valid() {
		return nil, ErrUnknownType
	}
	var created []*GradeComponent
	err := s.withSubjectLock(ctx, subjectID, func(tx pgx.Tx) error {
		total, err := subjectTotalTx(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		var existing int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM grade_components
			WHERE subject_id = $1 AND component_type = $2`, subjectID, t,
		).Scan(&existing); err != nil {
			return err
		}

		rows, err := fn(total, existing)
		if err != nil {
			return err
		}
		for _, c := range rows {
			err := tx.QueryRow(ctx, `
				INSERT INTO grade_components
					(subject_id, component_type, component_name,
					 max_score, weight_percentage, display_order)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id, created_at, updated_at`,
				c.SubjectID, c.Type, c.Name, c.MaxScore, c.Weight, c.DisplayOrder,
			).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert component: %w", err)
			}
		}
		created = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) RebalanceCategory(ctx context.Context, subjectID int64, t ComponentType, fn RebalanceFn) (int, error) {
	var updated int
	err := s.withSubjectLock(ctx, subjectID, func(tx pgx.Tx) error {
		total, err := subjectTotalTx(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `
			SELECT id, weight_percentage FROM grade_components
			WHERE subject_id = $1 AND component_type = $2
			ORDER BY display_order, id
			FOR UPDATE`, subjectID, t)
		if err != nil {
			return err
		}
		var ids []int64
		var categoryTotal float64
		for rows.Next() {
			var id int64
			var w float64
			if err := rows.Scan(&id, &w); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
			categoryTotal += w
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return ErrCategoryNotFound
		}

		weights, err := fn(total, categoryTotal, len(ids))
		if err != nil {
			return err
		}
		if len(weights) != len(ids) {
			return fmt.Errorf("rebalance returned %d weights for %d components", len(weights), len(ids))
		}
		for i, id := range ids {
			if _, err := tx.Exec(ctx, `
				UPDATE grade_components
				SET weight_percentage = $2, max_score = $2, updated_at = now()
				WHERE id = $1`, id, weights[i]); err != nil {
				return fmt.Errorf("update component %d: %w", id, err)
			}
		}
		updated = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (s *PostgresStore) DeleteCategory(ctx context.Context, subjectID int64, t ComponentType) ([]*GradeComponent, error) {
	var removed []*GradeComponent
	err := s.withSubjectLock(ctx, subjectID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			DELETE FROM grade_components
			WHERE subject_id = $1 AND component_type = $2
			RETURNING `+componentColumns, subjectID, t)
		if err != nil {
			return err
		}
		defer rows.Close()
		removed, err = scanComponents(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *PostgresStore) ReorderComponents(ctx context.Context, subjectID int64, fn ReorderFn) (int, error) {
	var reordered int
	err := s.withSubjectLock(ctx, subjectID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+componentColumns+`
			FROM grade_components WHERE subject_id = $1
			ORDER BY display_order, component_type, id
			FOR UPDATE`, subjectID)
		if err != nil {
			return err
		}
		components, err := scanComponents(rows)
		rows.Close()
		if err != nil {
			return err
		}

		orders, err := fn(components)
		if err != nil {
			return err
		}
		for id, order := range orders {
			if _, err := tx.Exec(ctx, `
				UPDATE grade_components
				SET display_order = $2, updated_at = now()
				WHERE id = $1`, id, order); err != nil {
				return fmt.Errorf("reorder component %d: %w", id, err)
			}
		}
		reordered = len(orders)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reordered, nil
}

func (s *PostgresStore) UpdateComponent(ctx context.Context, c *GradeComponent, check CeilingCheckFn) error {
	return s.withSubjectLock(ctx, c.SubjectID, func(tx pgx.Tx) error {
		var oldWeight float64
		err := tx.QueryRow(ctx, `
			SELECT weight_percentage FROM grade_components
			WHERE id = $1 AND subject_id = $2
			FOR UPDATE`, c.ID, c.SubjectID,
		).Scan(&oldWeight)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if check != nil {
			total, err := subjectTotalTx(ctx, tx, c.SubjectID)
			if err != nil {
				return err
			}
			if err := check(total - oldWeight + c.Weight); err != nil {
				return err
			}
		}

		return tx.QueryRow(ctx, `
			UPDATE grade_components
			SET component_type = $2, component_name = $3,
				max_score = $4, weight_percentage = $5,
				display_order = $6, updated_at = now()
			WHERE id = $1
			RETURNING updated_at`,
			c.ID, c.Type, c.Name, c.MaxScore, c.Weight, c.DisplayOrder,
		).Scan(&c.UpdatedAt)
	})
}

func (s *PostgresStore) DeleteComponent(ctx context.Context, id int64) (*GradeComponent, error) {
	c, err := scanComponent(s.pool.QueryRow(ctx, `
		DELETE FROM grade_components WHERE id = $1
		RETURNING `+componentColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *PostgresStore) CreateRubricEvent(ctx context.Context, e *RubricEvent) error {
	payloadJSON, _ := json.Marshal(e.Payload)
	return s.pool.QueryRow(ctx, `
		INSERT INTO rubric_events (subject_id, action, actor, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.SubjectID, e.Action, e.Actor, payloadJSON,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *PostgresStore) GetRubricEvents(ctx context.Context, subjectID int64, limit int) ([]*RubricEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, subject_id, action, actor, payload, created_at
		FROM rubric_events WHERE subject_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, subjectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*RubricEvent
	for rows.Next() {
		e := &RubricEvent{}
		var actor *string
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.Action, &actor, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if actor != nil {
			e.Actor = *actor
		}
		if payloadJSON != nil {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
