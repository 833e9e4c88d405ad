package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"csvwatch/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t)
	disp := testsupport.NewDispatcher(t, cfg, store)

	d, err := New(cfg, store, disp, testsupport.Logger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	status := d.Status(context.Background())
	if !status.Running {
		t.Fatal("daemon not reported running")
	}
	if status.LockFilePath == "" {
		t.Fatal("lock path empty")
	}
	if _, err := os.Stat(status.LockFilePath); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	d.Stop()
	if d.Status(context.Background()).Running {
		t.Fatal("daemon still reported running after stop")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	storeA := testsupport.NewStore(t)
	first, err := New(cfg, storeA, testsupport.NewDispatcher(t, cfg, storeA), testsupport.Logger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	storeB := testsupport.NewStore(t)
	second, err := New(cfg, storeB, testsupport.NewDispatcher(t, cfg, storeB), testsupport.Logger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail the lock")
	}
}

func TestStartFailsOnMissingWatchDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.Dirs = []string{filepath.Join(t.TempDir(), "missing")}

	store := testsupport.NewStore(t)
	d, err := New(cfg, store, testsupport.NewDispatcher(t, cfg, store), testsupport.Logger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected startup error for missing watch dir")
	}
}

func TestDaemonConvertsWhileRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.NewStore(t)
	d, err := New(cfg, store, testsupport.NewDispatcher(t, cfg, store), testsupport.Logger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	source := filepath.Join(cfg.Watch.Dirs[0], "x.csv")
	if err := os.WriteFile(source, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		jobs, err := d.Jobs(context.Background())
		if err != nil {
			t.Fatalf("Jobs: %v", err)
		}
		if len(jobs) > 0 && jobs[0].Status.IsTerminal() {
			if jobs[0].OutputPath == "" {
				t.Fatalf("job finished without output: %+v", jobs[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for conversion, jobs = %v", jobs)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
