package templates

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/arumata/snappy/internal/usecase"
)

func repoRoot(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("failed to resolve test file path")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", ".."))
}

func TestAdapter_List(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())

	entries, err := adapter.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name)
		if entry.Mode != unitFilePerm {
			t.Errorf("expected mode %o for %s, got %o", unitFilePerm, entry.Name, entry.Mode)
		}
	}
	want := "snappy-snap.service,snappy-snap.timer,snappy.service"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("templates = %s, want %s", got, want)
	}
}

func TestAdapter_ReadMatchesDisk(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())

	for _, name := range []string{"snappy.service", "snappy-snap.service", "snappy-snap.timer"} {
		data, err := adapter.Read(context.Background(), name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		// #nosec G304 -- test paths are controlled by the test harness.
		disk, err := os.ReadFile(filepath.Join(repoRoot(t), "assets", "systemd", name))
		if err != nil {
			t.Fatalf("failed to read asset file: %v", err)
		}
		if !bytes.Equal(data, disk) {
			t.Fatalf("embedded %s does not match asset file", name)
		}
	}
}

func TestAdapter_UnitsUsePlaceholders(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())

	tests := map[string][]string{
		"snappy.service":      {"Type=notify", usecase.UnitBinaryPlaceholder, usecase.UnitConfigPlaceholder, " schedule"},
		"snappy-snap.service": {"Type=oneshot", usecase.UnitBinaryPlaceholder, " snap"},
		"snappy-snap.timer":   {"OnCalendar=" + usecase.UnitCalendarPlaceholder, "Unit=snappy-snap.service"},
	}
	for name, wants := range tests {
		data, err := adapter.Read(context.Background(), name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		for _, want := range wants {
			if !strings.Contains(string(data), want) {
				t.Errorf("expected %q in %s", want, name)
			}
		}
	}
}

func TestAdapter_ReadInvalidName(t *testing.T) {
	t.Parallel()
	adapter := New(slog.Default())

	for _, name := range []string{"", "  ", "../go.mod", "..", `systemd\snappy.service`, "missing.service"} {
		if _, err := adapter.Read(context.Background(), name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}

func TestAdapter_ListOnlyUnits(t *testing.T) {
	t.Parallel()
	adapter := &Adapter{
		logger: slog.Default(),
		fsys: fstest.MapFS{
			"units/b.timer":         &fstest.MapFile{Data: []byte("t")},
			"units/a.service":       &fstest.MapFile{Data: []byte("s")},
			"units/README.md":       &fstest.MapFile{Data: []byte("r")},
			"units/sub/x.service":   &fstest.MapFile{Data: []byte("x")},
			"other/ignored.service": &fstest.MapFile{Data: []byte("i")},
		},
		dir: "units",
	}
	entries, err := adapter.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a.service" || entries[1].Name != "b.timer" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestAdapter_ListEmpty(t *testing.T) {
	t.Parallel()
	adapter := &Adapter{
		logger: slog.Default(),
		fsys:   fstest.MapFS{"systemd/sub/x.service": &fstest.MapFile{Data: []byte("x")}},
		dir:    "systemd",
	}
	if _, err := adapter.List(context.Background()); err == nil {
		t.Fatal("expected error when only subdirectories exist")
	}
}
