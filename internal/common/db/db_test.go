package db

import (
	"reflect"
	"testing"
)

func TestDriver(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		dsn        string
		wantDriver string
		wantNative string
		wantErr    bool
	}{
		{name: "postgres", dsn: "postgres://u:p@localhost/db?sslmode=disable", wantDriver: "postgres", wantNative: "postgres://u:p@localhost/db?sslmode=disable"},
		{name: "postgresql", dsn: "postgresql://localhost/db", wantDriver: "postgres", wantNative: "postgresql://localhost/db"},
		{name: "mysql", dsn: "mysql://u:p@tcp(localhost:3306)/db", wantDriver: "mysql", wantNative: "u:p@tcp(localhost:3306)/db"},
		{name: "empty", dsn: "", wantErr: true},
		{name: "unknown", dsn: "sqlite://file.db", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			driver, native, err := Driver(tt.dsn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if driver != tt.wantDriver || native != tt.wantNative {
				t.Fatalf("got (%q, %q), want (%q, %q)", driver, native, tt.wantDriver, tt.wantNative)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()
	script := `
-- schema; with a semicolon in a comment
CREATE TABLE t (id INT, name TEXT);
INSERT INTO t VALUES (1, 'a;b'), (2, 'it''s');
/* block ; comment */
SELECT name FROM t WHERE name <> "x;y";
`
	got := SplitStatements(script)
	want := []string{
		"-- schema; with a semicolon in a comment\nCREATE TABLE t (id INT, name TEXT)",
		"INSERT INTO t VALUES (1, 'a;b'), (2, 'it''s')",
		"/* block ; comment */\nSELECT name FROM t WHERE name <> \"x;y\"",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitStatements() = %#v, want %#v", got, want)
	}
}

func TestIsQuery(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"SELECT 1":          true,
		"  select * from t": true,
		"-- note\nWITH x AS (SELECT 1) SELECT * FROM x": true,
		"(SELECT 1) UNION (SELECT 2)":                   true,
		"INSERT INTO t VALUES (1)":                      false,
		"INSERT INTO t VALUES (1) RETURNING id":         true,
		"UPDATE t SET a = 1":                            false,
		"CREATE TABLE t (id INT)":                       false,
	}
	for stmt, want := range cases {
		if got := IsQuery(stmt); got != want {
			t.Fatalf("IsQuery(%q) = %v, want %v", stmt, got, want)
		}
	}
}
