package runtime

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"debugoj/internal/common/db"
	"debugoj/internal/validator/model"
)

func TestFormatResultSets(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		sets []resultSet
		want string
	}{
		{name: "no result sets", want: noResultsMessage},
		{
			name: "single table",
			sets: []resultSet{{
				columns: []string{"name", "salary"},
				rows:    [][]string{{"John", "75000"}, {"Al", "NULL"}},
			}},
			want: "name | salary\n-----+-------\nJohn | 75000 \nAl   | NULL  \n\n(2 rows)",
		},
		{
			name: "one row then empty",
			sets: []resultSet{
				{columns: []string{"n"}, rows: [][]string{{"1"}}},
				{columns: []string{"n"}},
			},
			want: "n\n-\n1\n\n(1 row)\n\nQuery 2: No rows returned",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := formatResultSets(tt.sets); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatCell(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{[]byte("abc"), "abc"},
		{int64(7), "7"},
		{float64(75000), "75000"},
		{time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), "2020-01-15"},
		{time.Date(2020, 1, 15, 8, 30, 0, 0, time.UTC), "2020-01-15 08:30:00"},
	}
	for _, c := range cases {
		if got := formatCell(c.in); got != c.want {
			t.Fatalf("formatCell(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDatabaseAdapterUnavailable(t *testing.T) {
	t.Parallel()
	adapter := NewDatabaseAdapter(DatabaseConfig{}, NewBootstrapper())
	adapter.open = func(ctx context.Context, cfg db.Config) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}
	res := adapter.Execute(context.Background(), model.ExecutionRequest{SourceCode: "SELECT 1", Language: model.LanguageSQL})
	if res.ErrorKind != model.ErrorServiceUnavailable || !strings.Contains(res.Diagnostic, "connection refused") {
		t.Fatalf("unexpected result %+v", res)
	}
}
