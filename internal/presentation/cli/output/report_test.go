package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
)

func sampleReport() *syncrun.Report {
	start := time.Unix(1000, 0)
	r := syncrun.NewReport("run-1", syncrun.Request{}, start)
	r.Add(syncrun.FileResult{Path: "/src/a.md", Identity: document.Identity{Category: "/x", Title: "a"}, State: syncrun.StateCreated, DocumentNumber: 5})
	r.Add(syncrun.FileResult{Path: "/src/b.md", Identity: document.Identity{Category: "/x", Title: "b"}, State: syncrun.StateSkipped})
	r.Complete(start.Add(2*time.Second), nil)
	return r
}

func TestRenderReport_Text(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	if err := RenderReport(f, sampleReport()); err != nil {
		t.Fatalf("RenderReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"created   /x/a #5",
		"skipped   /x/b",
		"✓ run run-1: 1 created, 0 updated, 1 skipped in 2s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderReport_Failed(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	r := syncrun.NewReport("run-2", syncrun.Request{}, time.Unix(0, 0))
	r.Add(syncrun.FileResult{Path: "/src/c.md", State: syncrun.StateFailed, Error: "unreadable"})
	r.Complete(time.Unix(1, 0), errString("boom"))

	if err := RenderReport(f, r); err != nil {
		t.Fatalf("RenderReport() error = %v", err)
	}
	if !strings.Contains(buf.String(), "✗ run run-2") || !strings.Contains(buf.String(), "1 failed") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestRenderReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithFormat(FormatJSON))

	if err := RenderReport(f, sampleReport()); err != nil {
		t.Fatalf("RenderReport() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["run_id"] != "run-1" || got["created"] != float64(1) || got["skipped"] != float64(1) {
		t.Errorf("unexpected JSON %v", got)
	}
	if files, ok := got["files"].([]any); !ok || len(files) != 2 {
		t.Errorf("files = %v", got["files"])
	}
}

func TestRenderIndex(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	docs := []document.RemoteDocument{{Number: 3, Category: "x/b", Title: "c", WIP: true}}
	if err := RenderIndex(f, "/x", docs); err != nil {
		t.Fatalf("RenderIndex() error = %v", err)
	}
	if !strings.Contains(buf.String(), "3       x/b/c  wip") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "1 documents under /x") {
		t.Errorf("missing count:\n%s", buf.String())
	}
}

func TestRenderResolved_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithFormat(FormatJSON))

	err := RenderResolved(f, []ResolvedPath{{Path: "/a/b/c.md", Identity: document.Identity{Category: "/x/b", Title: "c"}}})
	if err != nil {
		t.Fatalf("RenderResolved() error = %v", err)
	}
	var got []ResolvedPath
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Identity.Title != "c" {
		t.Errorf("unexpected %+v", got)
	}
}

func TestRenderRuns(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(WithWriter(&buf), WithColor(false))
		if err := RenderRuns(f, nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "no sync runs recorded") {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("empty json is an array", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(WithWriter(&buf), WithFormat(FormatJSON))
		if err := RenderRuns(f, nil); err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		f := NewFormatter(WithWriter(&buf), WithColor(false))
		runs := []ports.RunSummary{{RunID: "r1", StartedAt: "2024-01-01T00:00:00.000Z", Status: syncrun.StatusCompleted, Destination: "/x/", Created: 1, Updated: 2, Skipped: 3, DryRun: true}}
		if err := RenderRuns(f, runs); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "1/2/3") || !strings.Contains(buf.String(), "dry-run") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

func TestRenderRunFiles(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter(WithWriter(&buf), WithColor(false))

	files := []syncrun.FileResult{{Path: "/src/a.md", Identity: document.Identity{Category: "/x", Title: "a"}, State: syncrun.StateUpdated, DocumentNumber: 9}}
	if err := RenderRunFiles(f, "r1", files); err != nil {
		t.Fatalf("RenderRunFiles() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Run r1") || !strings.Contains(buf.String(), "updated  9") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

type errString string

func (e errString) Error() string { return string(e) }
