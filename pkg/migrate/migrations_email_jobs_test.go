package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmailJobsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_email_jobs.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no email jobs migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE email_job_type AS ENUM",
		"'rebook_nudge'",
		"CREATE TABLE IF NOT EXISTS email_jobs",
		"CHECK (attempts >= 0)",
		"WHERE sent_at IS NULL AND canceled_at IS NULL AND failed_at IS NULL",
		"DROP TABLE IF EXISTS email_jobs",
		"DROP TYPE IF EXISTS email_job_type",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
