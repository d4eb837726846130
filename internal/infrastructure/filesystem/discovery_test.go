package filesystem

import (
	"testing"
	"time"

	"github.com/spf13/afero"
)

func writeFile(t *testing.T, fs afero.Fs, path, body string, mtime time.Time) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	if err := fs.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("failed to set mtime on %s: %v", path, err)
	}
}

func TestDiscoverer_Discover(t *testing.T) {
	fs := afero.NewMemMapFs()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	writeFile(t, fs, "/src/old.md", "old", base)
	writeFile(t, fs, "/src/notes/new.txt", "new", base.Add(2*time.Hour))
	writeFile(t, fs, "/src/mid.MD", "mid", base.Add(time.Hour))
	writeFile(t, fs, "/src/image.png", "png", base.Add(3*time.Hour))
	writeFile(t, fs, "/src/node_modules/pkg/readme.md", "x", base.Add(4*time.Hour))
	writeFile(t, fs, "/src/logs/today.txt", "x", base.Add(4*time.Hour))
	writeFile(t, fs, "/src/tmp/scratch.md", "x", base.Add(4*time.Hour))

	files, err := NewDiscoverer(fs).Discover("/src")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{"/src/notes/new.txt", "/src/mid.MD", "/src/old.md"}
	if len(files) != len(want) {
		t.Fatalf("got %d files %v, want %v", len(files), files, want)
	}
	for i, path := range want {
		if files[i].Path != path {
			t.Errorf("files[%d] = %s, want %s", i, files[i].Path, path)
		}
	}
}

func TestDiscoverer_TiesOrderedByPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, fs, "/src/b.md", "", at)
	writeFile(t, fs, "/src/a.md", "", at)

	files, err := NewDiscoverer(fs).Discover("/src")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 2 || files[0].Path != "/src/a.md" {
		t.Errorf("files = %v, want a.md first", files)
	}
}

func TestDiscoverer_KeepsRootPrefix(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.md", "", time.Now())

	files, err := NewDiscoverer(fs).Discover("/src/")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 || files[0].Path[:5] != "/src/" {
		t.Errorf("files = %v, want paths prefixed with /src/", files)
	}
}

func TestDiscoverer_Options(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Now()
	writeFile(t, fs, "/src/a.md", "", now)
	writeFile(t, fs, "/src/b.rst", "", now)
	writeFile(t, fs, "/src/vendor/c.rst", "", now)
	writeFile(t, fs, "/src/tmp/d.rst", "", now)

	d := NewDiscoverer(fs, WithExtensions(".rst"), WithExcludeDirs("vendor"))
	files, err := d.Discover("/src")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %v, want b.rst and tmp/d.rst", files)
	}
}

func TestDiscoverer_DirExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/src/a.md", "", time.Now())
	d := NewDiscoverer(fs)

	tests := []struct {
		path string
		want bool
	}{
		{"/src", true},
		{"/src/a.md", false},
		{"/missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := d.DirExists(tt.path)
			if err != nil {
				t.Fatalf("DirExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DirExists(%s) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestDiscoverer_ReadBodyAndStat(t *testing.T) {
	fs := afero.NewMemMapFs()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, fs, "/src/a.md", "# hello\n", at)
	d := NewDiscoverer(fs)

	body, err := d.ReadBody("/src/a.md")
	if err != nil {
		t.Fatalf("ReadBody() error = %v", err)
	}
	if body != "# hello\n" {
		t.Errorf("ReadBody() = %q", body)
	}

	f, err := d.Stat("/src/a.md")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if !f.ModifiedTime.Equal(at) {
		t.Errorf("ModifiedTime = %v, want %v", f.ModifiedTime, at)
	}

	if _, err := d.ReadBody("/src/missing.md"); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := d.Stat("/src"); err == nil {
		t.Error("expected error for directory")
	}
}

func TestDiscoverer_ExcludesDirsIgnoringCase(t *testing.T) {
	fs := afero.NewMemMapFs()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, fs, "/src/keep.md", "x", at)
	writeFile(t, fs, "/src/Logs/today.txt", "x", at)
	writeFile(t, fs, "/src/TMP/scratch.md", "x", at)
	writeFile(t, fs, "/src/Node_Modules/pkg/readme.md", "x", at)

	d := NewDiscoverer(fs)
	files, err := d.Discover("/src")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 || files[0].Path != "/src/keep.md" {
		t.Errorf("Discover() = %v, want only /src/keep.md", files)
	}

	for _, name := range []string{"logs", "Logs", "TMP", "Node_Modules"} {
		if !d.Excluded(name) {
			t.Errorf("Excluded(%q) = false, want true", name)
		}
	}
}
