package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"debugoj/internal/common/db"
	"debugoj/internal/validator/model"
)

// DatabaseConfig configures the SQL adapter.
type DatabaseConfig struct {
	Enabled bool          `yaml:"enabled"`
	Pool    db.Config     `yaml:"pool"`
	Timeout time.Duration `yaml:"timeout"`
}

const noResultsMessage = "Query executed successfully (no results returned)"

// DatabaseAdapter runs the question's setup and the submitted statements in a
// transaction that is rolled back afterwards.
type DatabaseAdapter struct {
	cfg  DatabaseConfig
	boot *Bootstrapper
	open func(ctx context.Context, cfg db.Config) (*sql.DB, error)
}

func NewDatabaseAdapter(cfg DatabaseConfig, boot *Bootstrapper) *DatabaseAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &DatabaseAdapter{cfg: cfg, boot: boot, open: db.Open}
}

func (a *DatabaseAdapter) Substrate() model.Substrate { return model.SubstrateDatabase }

func (a *DatabaseAdapter) Execute(ctx context.Context, req model.ExecutionRequest) model.ExecutionResult {
	start := time.Now()
	pool, err := acquire(ctx, a.boot, model.SubstrateDatabase, func(ctx context.Context) (*sql.DB, error) {
		return a.open(ctx, a.cfg.Pool)
	})
	if err != nil {
		return elapsed(unavailable(a.Substrate(), fmt.Sprintf("database unavailable: %v", err)), start)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var setup string
	if req.Reference != nil {
		setup = req.Reference.Setup
	}
	var output string
	err = db.Scratch(runCtx, pool, func(ctx context.Context, q db.Querier) error {
		for _, stmt := range db.SplitStatements(setup) {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return &setupError{err: err}
			}
		}
		var runErr error
		output, runErr = runStatements(ctx, q, req.SourceCode)
		return runErr
	})

	res := model.ExecutionResult{Substrate: a.Substrate()}
	var setupErr *setupError
	switch {
	case err == nil:
		res.Succeeded = true
		res.RawOutput = output
	case runCtx.Err() != nil && errors.Is(err, context.DeadlineExceeded):
		res = model.Failed(a.Substrate(), model.ErrorTimeout, fmt.Sprintf("query timed out after %s", a.cfg.Timeout))
	case errors.As(err, &setupErr):
		res = unavailable(a.Substrate(), "Schema Error: "+setupErr.err.Error())
	default:
		res = model.Failed(a.Substrate(), model.ErrorRuntime, "SQL Error: "+err.Error())
	}
	return elapsed(res, start)
}

type setupError struct{ err error }

func (e *setupError) Error() string { return e.err.Error() }
func (e *setupError) Unwrap() error { return e.err }

type resultSet struct {
	columns []string
	rows    [][]string
}

func runStatements(ctx context.Context, q db.Querier, script string) (string, error) {
	var sets []resultSet
	for _, stmt := range db.SplitStatements(script) {
		if !db.IsQuery(stmt) {
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return "", err
			}
			continue
		}
		set, err := query(ctx, q, stmt)
		if err != nil {
			return "", err
		}
		sets = append(sets, set)
	}
	return formatResultSets(sets), nil
}

func query(ctx context.Context, q db.Querier, stmt string) (resultSet, error) {
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return resultSet{}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return resultSet{}, err
	}
	set := resultSet{columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return resultSet{}, err
		}
		row := make([]string, len(columns))
		for i, v := range values {
			row[i] = formatCell(v)
		}
		set.rows = append(set.rows, row)
	}
	return set, rows.Err()
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprint(val)
	}
}

// formatResultSets renders result sets as "col | col" tables, each cell padded
// to its column header, followed by a row count.
func formatResultSets(sets []resultSet) string {
	if len(sets) == 0 {
		return noResultsMessage
	}
	var b strings.Builder
	for i, set := range sets {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if len(set.rows) == 0 {
			fmt.Fprintf(&b, "Query %d: No rows returned", i+1)
			continue
		}
		dashes := make([]string, len(set.columns))
		for j, col := range set.columns {
			dashes[j] = strings.Repeat("-", len(col))
		}
		b.WriteString(strings.Join(set.columns, " | "))
		b.WriteString("\n")
		b.WriteString(strings.Join(dashes, "-+-"))
		b.WriteString("\n")
		for _, row := range set.rows {
			cells := make([]string, len(row))
			for j, cell := range row {
				cells[j] = padRight(cell, len(set.columns[j]))
			}
			b.WriteString(strings.Join(cells, " | "))
			b.WriteString("\n")
		}
		plural := "s"
		if len(set.rows) == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "\n(%d row%s)", len(set.rows), plural)
	}
	return b.String()
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
