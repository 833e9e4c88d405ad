package testsupport

import (
	"testing"

	"csvwatch/internal/config"
	"csvwatch/internal/convert"
	"csvwatch/internal/dispatcher"
	"csvwatch/internal/queue"
)

// NewStore opens an in-memory ledger for tests and registers cleanup.
func NewStore(t testing.TB) *queue.Store {
	t.Helper()

	store, err := queue.Open()
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// NewDispatcher wires a dispatcher from the test config and store. It is
// returned unstarted.
func NewDispatcher(t testing.TB, cfg *config.Config, store *queue.Store) *dispatcher.Dispatcher {
	t.Helper()

	pipeline := convert.NewPipeline(convert.Options{
		OutputDir: cfg.Output.Dir,
		Lines:     cfg.LinesMode(),
		Indent:    cfg.Output.Indent,
		Overwrite: cfg.Output.Overwrite,
		Delimiter: cfg.CSV.Delimiter,
		Quote:     cfg.CSV.Quote,
		Encoding:  cfg.CSV.Encoding,
	}, Logger())
	return dispatcher.New(cfg, store, pipeline, Logger())
}
