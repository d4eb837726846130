package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jbctechsolutions/wikisync/internal/application/ports"
	"github.com/jbctechsolutions/wikisync/internal/domain/document"
	"github.com/jbctechsolutions/wikisync/internal/domain/syncrun"
)

// reportJSON is the machine-readable shape of a run report.
type reportJSON struct {
	*syncrun.Report
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Reported int    `json:"reported"`
	Failed   int    `json:"failed"`
	Duration string `json:"duration"`
}

// RenderReport prints the outcome of a sync run.
func RenderReport(f *Formatter, report *syncrun.Report) error {
	if report == nil {
		return nil
	}
	if f.IsJSON() {
		return f.JSON(reportJSON{
			Report:   report,
			Created:  report.Count(syncrun.StateCreated),
			Updated:  report.Count(syncrun.StateUpdated),
			Skipped:  report.Count(syncrun.StateSkipped),
			Reported: report.Count(syncrun.StateReported),
			Failed:   report.Count(syncrun.StateFailed),
			Duration: report.Duration().Round(time.Millisecond).String(),
		})
	}

	for _, res := range report.Files {
		line := fmt.Sprintf("%-9s %s", res.State, res.Identity.FullName())
		if res.DocumentNumber > 0 {
			line += " #" + strconv.Itoa(res.DocumentNumber)
		}
		if res.Error != "" {
			line += " (" + res.Error + ")"
		}
		if err := f.Println("%s", f.Colorize(line, StateColor(res.State))); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("run %s: %d created, %d updated, %d skipped",
		report.RunID,
		report.Count(syncrun.StateCreated),
		report.Count(syncrun.StateUpdated),
		report.Count(syncrun.StateSkipped),
	)
	if n := report.Count(syncrun.StateReported); n > 0 {
		summary += fmt.Sprintf(", %d reported (dry run)", n)
	}
	if n := report.Count(syncrun.StateFailed); n > 0 {
		summary += fmt.Sprintf(", %d failed", n)
	}
	summary += " in " + report.Duration().Round(time.Millisecond).String()

	if report.Status == syncrun.StatusFailed {
		return f.Error("%s", summary)
	}
	return f.Success("%s", summary)
}

// RenderIndex prints the documents under a namespace.
func RenderIndex(f *Formatter, namespace string, docs []document.RemoteDocument) error {
	if f.IsJSON() {
		return f.JSON(map[string]any{
			"namespace": namespace,
			"count":     len(docs),
			"documents": docs,
		})
	}

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		wip := ""
		if d.WIP {
			wip = "wip"
		}
		rows = append(rows, []string{strconv.Itoa(d.Number), d.Identity().FullName(), wip})
	}
	if err := f.Table(TableData{Headers: []string{"NUMBER", "NAME", "WIP"}, Rows: rows}); err != nil {
		return err
	}
	return f.Info("%d documents under %s", len(docs), namespace)
}

// ResolvedPath pairs a local path with its remote identity.
type ResolvedPath struct {
	Path     string            `json:"path"`
	Identity document.Identity `json:"identity"`
}

// RenderResolved prints local paths with their remote identities.
func RenderResolved(f *Formatter, resolved []ResolvedPath) error {
	if f.IsJSON() {
		return f.JSON(resolved)
	}

	rows := make([][]string, 0, len(resolved))
	for _, r := range resolved {
		rows = append(rows, []string{r.Path, r.Identity.Category, r.Identity.Title})
	}
	return f.Table(TableData{Headers: []string{"PATH", "CATEGORY", "TITLE"}, Rows: rows})
}

// RenderRuns prints stored run summaries.
func RenderRuns(f *Formatter, runs []ports.RunSummary) error {
	if f.IsJSON() {
		if runs == nil {
			runs = []ports.RunSummary{}
		}
		return f.JSON(runs)
	}
	if len(runs) == 0 {
		return f.Info("no sync runs recorded")
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		mode := ""
		if r.DryRun {
			mode = "dry-run"
		}
		rows = append(rows, []string{
			r.RunID,
			r.StartedAt,
			f.Colorize(string(r.Status), StatusColor(r.Status)),
			r.Destination,
			fmt.Sprintf("%d/%d/%d", r.Created, r.Updated, r.Skipped),
			mode,
		})
	}
	return f.Table(TableData{
		Headers: []string{"RUN", "STARTED", "STATUS", "DESTINATION", "C/U/S", "MODE"},
		Rows:    rows,
	})
}

// RenderRunFiles prints the file outcomes of one run.
func RenderRunFiles(f *Formatter, runID string, files []syncrun.FileResult) error {
	if f.IsJSON() {
		if files == nil {
			files = []syncrun.FileResult{}
		}
		return f.JSON(map[string]any{"run_id": runID, "files": files})
	}
	if err := f.Header("Run " + runID); err != nil {
		return err
	}

	rows := make([][]string, 0, len(files))
	for _, res := range files {
		number := ""
		if res.DocumentNumber > 0 {
			number = strconv.Itoa(res.DocumentNumber)
		}
		rows = append(rows, []string{string(res.State), number, res.Identity.FullName(), res.Path})
	}
	return f.Table(TableData{Headers: []string{"STATE", "NUMBER", "NAME", "PATH"}, Rows: rows})
}
