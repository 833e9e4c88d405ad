package convert

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"csvwatch/internal/logging"
	"csvwatch/internal/stability"
)

func writeSource(t *testing.T, dir, name, content string) (string, stability.Fingerprint) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	fp, ok := stability.Stat(path)
	if !ok {
		t.Fatalf("stat %s failed", path)
	}
	return path, fp
}

func TestPipelineConvertsToArray(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	source, fp := writeSource(t, dir, "x.csv", "a,b,c\n1,2,3\n")

	pipeline := NewPipeline(Options{OutputDir: outDir, Encoding: EncodingUTF8SIG}, logging.NewNop())
	result, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Records != 1 {
		t.Fatalf("records = %d, want 1", result.Records)
	}
	if filepath.Base(result.OutputPath) != "x.json" {
		t.Fatalf("output name = %s", result.OutputPath)
	}

	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[{"a":"1","b":"2","c":"3"}]` {
		t.Fatalf("output = %s", data)
	}
}

func TestPipelineLinesModeExtension(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a\n1\n2\n")

	pipeline := NewPipeline(Options{OutputDir: dir, Lines: true}, logging.NewNop())
	result, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(result.OutputPath) != "x.jsonl" {
		t.Fatalf("output name = %s", result.OutputPath)
	}
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\"a\":\"1\"}\n{\"a\":\"2\"}\n" {
		t.Fatalf("output = %q", data)
	}
}

func TestPipelineOverwriteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")

	pipeline := NewPipeline(Options{OutputDir: dir, Overwrite: true}, logging.NewNop())
	first, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := pipeline.Run(context.Background(), Job{ID: "j2", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if first.OutputPath != second.OutputPath {
		t.Fatalf("overwrite produced two paths: %s vs %s", first.OutputPath, second.OutputPath)
	}
	a, _ := os.ReadFile(first.OutputPath)
	b, _ := os.ReadFile(second.OutputPath)
	if string(a) != string(b) {
		t.Fatal("overwrite output not byte-identical")
	}
}

func TestPipelineUniqueNamesNeverCollide(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")

	pipeline := NewPipeline(Options{OutputDir: dir}, logging.NewNop())
	first, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	second, err := pipeline.Run(context.Background(), Job{ID: "j2", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.OutputPath == first.OutputPath {
		t.Fatal("second run reused the first output path")
	}
	if filepath.Base(second.OutputPath) != "x_1.json" {
		t.Fatalf("unique name = %s, want x_1.json", second.OutputPath)
	}
}

func TestPipelineSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")

	pipeline := NewPipeline(Options{OutputDir: dir}, logging.NewNop())
	first, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// Touch moves the mtime without changing content.
	later := fp.ModTime.Add(2 * time.Second)
	if err := os.Chtimes(source, later, later); err != nil {
		t.Fatal(err)
	}
	touched, ok := stability.Stat(source)
	if !ok {
		t.Fatal("stat after touch failed")
	}

	second, err := pipeline.Run(context.Background(), Job{
		ID:          "j2",
		SourcePath:  source,
		Fingerprint: touched,
		SkipHash:    first.ContentHash,
	})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if !second.Skipped {
		t.Fatal("expected skip for unchanged content")
	}
	if second.ContentHash != first.ContentHash {
		t.Fatal("hash mismatch for identical content")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	outputs := 0
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".json" {
			outputs++
		}
	}
	if outputs != 1 {
		t.Fatalf("outputs = %d, want 1", outputs)
	}
}

func TestPipelineRaceAbortOnMovedFingerprint(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")

	// The file grows after stabilization was decided.
	if err := os.WriteFile(source, []byte("a,b\n1,2\n3,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	pipeline := NewPipeline(Options{OutputDir: dir}, logging.NewNop())
	_, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err == nil {
		t.Fatal("expected race abort")
	}
	if !IsRace(err) {
		t.Fatalf("kind = %s, want race", KindOf(err))
	}
}

func TestPipelineRaceAbortOnVanishedSource(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")
	if err := os.Remove(source); err != nil {
		t.Fatal(err)
	}

	pipeline := NewPipeline(Options{OutputDir: dir}, logging.NewNop())
	_, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if !IsRace(err) {
		t.Fatalf("expected race abort, got %v", err)
	}
}

func TestPipelineParseErrorOnBadEncoding(t *testing.T) {
	dir := t.TempDir()
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")

	pipeline := NewPipeline(Options{OutputDir: dir, Encoding: "no-such-charset"}, logging.NewNop())
	_, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if KindOf(err) != KindParse {
		t.Fatalf("kind = %s, want parse", KindOf(err))
	}
}

func TestPipelineWriteErrorOnUnwritableOutput(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o500); err != nil {
		t.Fatal(err)
	}
	source, fp := writeSource(t, dir, "x.csv", "a,b\n1,2\n")

	pipeline := NewPipeline(Options{OutputDir: outDir}, logging.NewNop())
	_, err := pipeline.Run(context.Background(), Job{ID: "j1", SourcePath: source, Fingerprint: fp})
	if err == nil {
		t.Fatal("expected write error")
	}
	if KindOf(err) != KindWrite {
		t.Fatalf("kind = %s, want write", KindOf(err))
	}
}
