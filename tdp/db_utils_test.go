package tdp

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replica.my.cnf")
	if err := os.WriteFile(path, []byte("[client]\nuser = s52\npassword = hunter2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := DSN(path, DBName)
	if err != nil {
		t.Fatal(err)
	}
	if want := "s52:hunter2@tcp(127.0.0.1)/tdp?parseTime=true"; got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}

	if err := os.WriteFile(path, []byte("[client]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := DSN(path, DBName); err == nil {
		t.Error("DSN accepted a file without a user")
	}
	if _, err := DSN(filepath.Join(t.TempDir(), "missing"), DBName); err == nil {
		t.Error("DSN accepted a missing file")
	}
}

func TestInsertQuery(t *testing.T) {
	got := insertQuery("releases", []string{"a", "b"}, 3)
	want := "INSERT INTO releases(a, b) VALUES (?, ?),(?, ?),(?, ?)"
	if got != want {
		t.Errorf("insertQuery = %q, want %q", got, want)
	}
	n := maxPlaceholders / len(tripColumns)
	if q := insertQuery("trips", tripColumns, n); strings.Count(q, "?") > 65535 {
		t.Errorf("a full trips batch uses %d placeholders", strings.Count(q, "?"))
	}
}

func TestCreateTableRejectsUnknownTables(t *testing.T) {
	// the name is checked before the connection is used
	var db *sql.DB
	if err := CreateTable(db, "users; DROP TABLE trips"); err == nil {
		t.Error("CreateTable accepted an unknown table")
	}
}
