package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrations_Embedded(t *testing.T) {
	names, err := fs.Glob(Migrations, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no migrations embedded")
	}

	b, err := fs.ReadFile(Migrations, "00001_create_users.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	body := string(b)
	for _, want := range []string{"-- +goose Up", "-- +goose Down", "password_changed_at", "users_email_key"} {
		if !strings.Contains(body, want) {
			t.Errorf("migration missing %q", want)
		}
	}
}
