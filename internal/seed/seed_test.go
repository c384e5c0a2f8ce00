package seed

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.ErrorLevel, Output: &bytes.Buffer{}})
}

func newConnectedDB(t *testing.T) *sqlitedb.Backend {
	t.Helper()
	db := sqlitedb.New(sqlitedb.Config{DSN: "file::memory:?cache=shared", MinConns: 1, MaxConns: 1}, testLogger())
	if err := db.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return db
}

func waitForTerminal(t *testing.T, jobs *JobStore, id string) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := jobs.Get(id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if job.Status == StatusCompleted || job.Status == StatusFailed {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return nil
}

func TestSeederWritesSyntheticDocumentsAndCompletesJob(t *testing.T) {
	db := newConnectedDB(t)
	jobs := NewJobStore()
	seeder := NewSeeder(db, jobs, testLogger(), nil)

	job := seeder.Start(context.Background(), "books", 5)
	final := waitForTerminal(t, jobs, job.ID)

	if final.Status != StatusCompleted {
		t.Fatalf("Status = %v, want completed (error: %s)", final.Status, final.Error)
	}
	if final.RowsWritten != 5 {
		t.Errorf("RowsWritten = %d, want 5", final.RowsWritten)
	}
	if final.Progress != 100 {
		t.Errorf("Progress = %d, want 100", final.Progress)
	}
}

func TestSeederMarksJobFailedOnGeneratorError(t *testing.T) {
	db := newConnectedDB(t)
	jobs := NewJobStore()
	boom := func(ctx context.Context, dataset string, count int) ([]Document, error) {
		return nil, errGenerator
	}
	seeder := NewSeeder(db, jobs, testLogger(), boom)

	job := seeder.Start(context.Background(), "books", 3)
	final := waitForTerminal(t, jobs, job.ID)

	if final.Status != StatusFailed {
		t.Fatalf("Status = %v, want failed", final.Status)
	}
	if final.Error == "" {
		t.Error("expected a non-empty Error message")
	}
}

func TestJobStoreGetUnknownIDReturnsError(t *testing.T) {
	jobs := NewJobStore()
	if _, err := jobs.Get("missing"); err == nil {
		t.Error("expected an error for an unknown job ID")
	}
}

func TestProgressMessageEncodesJobFields(t *testing.T) {
	job := &Job{ID: "j1", Dataset: "books", Status: StatusRunning, Progress: 42, RowsWritten: 10}
	msg, err := ProgressMessage(job)
	if err != nil {
		t.Fatalf("ProgressMessage() error = %v", err)
	}
	fields := msg.AsMap()
	if fields["dataset"] != "books" {
		t.Errorf("dataset = %v, want books", fields["dataset"])
	}
	if fields["progress"] != float64(42) {
		t.Errorf("progress = %v, want 42", fields["progress"])
	}
}

var errGenerator = genError{}

type genError struct{}

func (genError) Error() string { return "generator exploded" }
