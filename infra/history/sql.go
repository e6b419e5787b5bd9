package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	corehistory "github.com/kilianp07/busdepot/core/history"
	"github.com/kilianp07/busdepot/core/model"
)

// Dialect captures the differences between the supported SQL databases.
type Dialect struct {
	Driver string
	// Placeholder returns the bind parameter for the n-th argument (1-based).
	Placeholder func(n int) string
	IntType     string
}

var (
	SQLite = Dialect{
		Driver:      "sqlite",
		Placeholder: func(int) string { return "?" },
		IntType:     "INTEGER",
	}
	Postgres = Dialect{
		Driver:      "pgx",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		IntType:     "BIGINT",
	}
)

// SQLStore persists evaluations in a relational database. Each row holds
// the full evaluation as JSON next to its timestamp.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteStore opens or creates the SQLite database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return OpenSQLStore(SQLite, path)
}

// NewPostgresStore connects to PostgreSQL using the pgx driver.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	return OpenSQLStore(Postgres, dsn)
}

// OpenSQLStore opens the database and ensures the schema exists.
func OpenSQLStore(d Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, err
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS depot_evaluations (
        id TEXT PRIMARY KEY,
        ts %s NOT NULL,
        fleet_size %s NOT NULL,
        record TEXT NOT NULL
    )`, d.IntType, d.IntType)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// Append writes the evaluation to the database.
func (s *SQLStore) Append(ctx context.Context, ev model.Evaluation) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	p := s.dialect.Placeholder
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO depot_evaluations (id, ts, fleet_size, record) VALUES (%s, %s, %s, %s)`, p(1), p(2), p(3), p(4)),
		ev.ID, ev.Time.UnixNano(), ev.Metrics.FleetSize, string(b))
	return err
}

// Query returns evaluations matching q in chronological order.
func (s *SQLStore) Query(ctx context.Context, q corehistory.Query) ([]model.Evaluation, error) {
	var args []any
	bind := func(v any) string {
		args = append(args, v)
		return s.dialect.Placeholder(len(args))
	}
	query := `SELECT record FROM depot_evaluations WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ` + bind(q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ` + bind(q.End.UnixNano())
	}
	// The bus filter runs on the decoded record, so the limit can only be
	// pushed down without it.
	if q.Limit > 0 && q.BusID == "" {
		query += ` ORDER BY ts DESC LIMIT ` + bind(q.Limit)
	} else {
		query += ` ORDER BY ts`
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Evaluation
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var ev model.Evaluation
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
		res = append(res, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.Apply(res), nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error { return s.db.Close() }
