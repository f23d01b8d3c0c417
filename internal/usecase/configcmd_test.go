package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type fakeConfig struct {
	saved       map[string]ConfigFile
	loadErr     error
	validateErr error
}

func newFakeConfig() *fakeConfig {
	return &fakeConfig{saved: map[string]ConfigFile{}}
}

func (f *fakeConfig) Load(ctx context.Context, path string) (ConfigFile, error) {
	_ = ctx
	if f.loadErr != nil {
		return ConfigFile{}, f.loadErr
	}
	if cfg, ok := f.saved[path]; ok {
		return cfg, nil
	}
	return DefaultConfigFile(), nil
}

func (f *fakeConfig) Save(ctx context.Context, path string, cfg ConfigFile) error {
	_ = ctx
	f.saved[path] = cfg
	return os.WriteFile(path, []byte(fmt.Sprintf("folder = %q\n", cfg.Destination.Folder)), 0o644)
}

func (f *fakeConfig) Validate(cfg ConfigFile) error {
	if f.validateErr != nil {
		return f.validateErr
	}
	if cfg.Destination.Folder == "" {
		return errors.New("destination.folder is required")
	}
	return nil
}

func TestCreateConfig_WritesDefaultPath(t *testing.T) {
	home := t.TempDir()
	cfgAdapter := newFakeConfig()
	deps := &Dependencies{FileSystem: newTestFileSystem(), Config: cfgAdapter}

	path, err := CreateConfig(context.Background(), ConfigCreateOptions{
		Destination: "~/backups",
		Sources:     []string{"~/docs", "# skip", ""},
		HomeDir:     home,
	}, deps, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(home, ".config", "snappy", "config.toml")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	saved := cfgAdapter.saved[want]
	if saved.Destination.Folder != "~/backups" {
		t.Fatalf("unexpected destination: %q", saved.Destination.Folder)
	}
	if len(saved.Sources.Paths) != 1 || saved.Sources.Paths[0] != "~/docs" {
		t.Fatalf("unexpected sources: %v", saved.Sources.Paths)
	}
	if saved.Retention.Keep != DefaultConfigFile().Retention.Keep {
		t.Fatalf("unexpected keep: %d", saved.Retention.Keep)
	}
}

func TestCreateConfig_ExistingRequiresForce(t *testing.T) {
	home := t.TempDir()
	deps := &Dependencies{FileSystem: newTestFileSystem(), Config: newFakeConfig()}
	path := filepath.Join(home, "custom.toml")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	opts := ConfigCreateOptions{Path: path, Destination: "/b", HomeDir: home}

	if _, err := CreateConfig(context.Background(), opts, deps, testLogger()); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}

	orig := configNow
	configNow = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	t.Cleanup(func() { configNow = orig })

	opts.Force = true
	if _, err := CreateConfig(context.Background(), opts, deps, testLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backup := path + ".bak.20240102-030405"
	data, err := os.ReadFile(backup)
	if err != nil || string(data) != "old" {
		t.Fatalf("previous config must be kept at %s: %v", backup, err)
	}
}

func TestCreateConfig_RequiresDestination(t *testing.T) {
	deps := &Dependencies{FileSystem: newTestFileSystem(), Config: newFakeConfig()}
	_, err := CreateConfig(context.Background(), ConfigCreateOptions{HomeDir: t.TempDir()}, deps, testLogger())
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
}

func TestCreateConfig_DryRun(t *testing.T) {
	home := t.TempDir()
	deps := &Dependencies{FileSystem: newTestFileSystem(), Config: newFakeConfig()}
	path, err := CreateConfig(context.Background(), ConfigCreateOptions{
		Destination: "/b",
		HomeDir:     home,
		DryRun:      true,
	}, deps, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write config, stat err: %v", err)
	}
}

func TestShowConfig(t *testing.T) {
	home := t.TempDir()
	deps := &Dependencies{FileSystem: newTestFileSystem(), Config: newFakeConfig()}
	path := filepath.Join(home, "config.toml")

	if _, err := ShowConfig(context.Background(), path, deps); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage for missing config, got %v", err)
	}
	if err := os.WriteFile(path, []byte("[destination]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := ShowConfig(context.Background(), path, deps)
	if err != nil || !strings.Contains(string(data), "[destination]") {
		t.Fatalf("unexpected content %q, err %v", data, err)
	}
}

func TestResolveConfigPath(t *testing.T) {
	fs := newTestFileSystem()
	if got := ResolveConfigPath(fs, "~/x.yaml", "/home/u"); got != "/home/u/x.yaml" {
		t.Fatalf("unexpected override path: %s", got)
	}
	if got := ResolveConfigPath(fs, " ", "/home/u"); got != filepath.Join("/home/u", ".config", "snappy", "config.toml") {
		t.Fatalf("unexpected default path: %s", got)
	}
}

func TestLoadRuntimeConfig(t *testing.T) {
	cfgAdapter := newFakeConfig()
	deps := &Dependencies{FileSystem: newTestFileSystem(), Config: cfgAdapter}

	if _, _, err := LoadRuntimeConfig(context.Background(), "/c.toml", "/home/u", deps); !errors.Is(err, ErrUsage) {
		t.Fatalf("defaults must fail validation, got %v", err)
	}

	file := DefaultConfigFile()
	file.Destination.Folder = "/b"
	file.Sources.Paths = []string{"# only a comment"}
	cfgAdapter.saved["/c.toml"] = file
	if _, _, err := LoadRuntimeConfig(context.Background(), "/c.toml", "/home/u", deps); !errors.Is(err, ErrUsage) {
		t.Fatalf("comment-only sources must fail, got %v", err)
	}

	file.Sources.Paths = []string{"/data"}
	cfgAdapter.saved["/c.toml"] = file
	cfg, _, err := LoadRuntimeConfig(context.Background(), "/c.toml", "/home/u", deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Destination != "/b" || len(cfg.Sources) != 1 {
		t.Fatalf("unexpected runtime config: %+v", cfg)
	}

	cfgAdapter.loadErr = errors.New("toml: bad")
	if _, _, err := LoadRuntimeConfig(context.Background(), "/c.toml", "/home/u", deps); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected ErrUsage for parse error, got %v", err)
	}
}
