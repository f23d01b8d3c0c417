package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

type testFileSystem struct{}

func newTestFileSystem() *testFileSystem {
	return &testFileSystem{}
}

func safeFileMode(perm int, fallback fs.FileMode) fs.FileMode {
	if perm < 0 || perm > 0o777 {
		return fallback
	}
	// #nosec G115 -- perm validated to be within safe range.
	return fs.FileMode(perm)
}

func (a *testFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	_ = ctx
	// #nosec G304 -- test paths are controlled by the test harness.
	return os.ReadFile(path)
}

func (a *testFileSystem) WriteFile(ctx context.Context, path string, data []byte, perm int) error {
	_ = ctx
	return os.WriteFile(path, data, safeFileMode(perm, 0o644))
}

func (a *testFileSystem) CreateDir(ctx context.Context, path string, perm int) error {
	_ = ctx
	return os.MkdirAll(path, safeFileMode(perm, 0o755))
}

func (a *testFileSystem) CreateDirExclusive(ctx context.Context, path string, perm int) error {
	_ = ctx
	return os.Mkdir(path, safeFileMode(perm, 0o755))
}

func (a *testFileSystem) RemoveAll(ctx context.Context, path string) error {
	_ = ctx
	return os.RemoveAll(path)
}

func (a *testFileSystem) Stat(ctx context.Context, path string) (FileInfo, error) {
	_ = ctx
	return os.Stat(path)
}

func (a *testFileSystem) ReadDir(ctx context.Context, path string) ([]DirEntry, error) {
	_ = ctx
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	result := make([]DirEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, &dirEntryWrapperTest{entry})
	}
	return result, nil
}

func (a *testFileSystem) Move(ctx context.Context, src, dst string) error {
	_ = ctx
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (a *testFileSystem) Abs(ctx context.Context, path string) (string, error) {
	_ = ctx
	return filepath.Abs(path)
}

func (a *testFileSystem) Join(elements ...string) string { return filepath.Join(elements...) }
func (a *testFileSystem) Base(path string) string        { return filepath.Base(path) }
func (a *testFileSystem) Dir(path string) string         { return filepath.Dir(path) }
func (a *testFileSystem) Rel(basepath, targpath string) (string, error) {
	return filepath.Rel(basepath, targpath)
}
func (a *testFileSystem) Clean(path string) string      { return filepath.Clean(path) }
func (a *testFileSystem) VolumeName(path string) string { return filepath.VolumeName(path) }
func (a *testFileSystem) PathSeparator() byte           { return os.PathSeparator }
func (a *testFileSystem) IsNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}

type dirEntryWrapperTest struct {
	entry fs.DirEntry
}

func (d *dirEntryWrapperTest) Name() string { return d.entry.Name() }
func (d *dirEntryWrapperTest) IsDir() bool  { return d.entry.IsDir() }

// flakyFileSystem fails selected operations.
type flakyFileSystem struct {
	*testFileSystem
	removeErr map[string]error
	moveErr   error
}

func (f *flakyFileSystem) RemoveAll(ctx context.Context, path string) error {
	if err, ok := f.removeErr[filepath.Base(path)]; ok {
		return err
	}
	return f.testFileSystem.RemoveAll(ctx, path)
}

func (f *flakyFileSystem) Move(ctx context.Context, src, dst string) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	return f.testFileSystem.Move(ctx, src, dst)
}

// fakeMirror copies trees the way the mirror tool would for the flags the
// backup flow passes: trailing-slash sources, --dry-run, --exclude with
// anchored patterns and --link-dest hard links for identical files.
type fakeMirror struct {
	mu       sync.Mutex
	requests []MirrorRequest
	lookErr  error
	startErr error
	exitCode map[string]int
	stderr   string
	onRun    func(req MirrorRequest)
}

func (m *fakeMirror) LookPath(ctx context.Context, binary string) (string, error) {
	_ = ctx
	if m.lookErr != nil {
		return "", m.lookErr
	}
	return "/usr/bin/" + binary, nil
}

func (m *fakeMirror) Run(ctx context.Context, req MirrorRequest, sink LineSink) (MirrorResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.onRun != nil {
		m.onRun(req)
	}
	if m.startErr != nil {
		return MirrorResult{}, m.startErr
	}
	if ctx.Err() != nil {
		return MirrorResult{ExitCode: -1}, nil
	}
	sink(StreamStdout, "sending incremental file list")
	if code, ok := m.exitCode[filepath.Base(strings.TrimRight(req.Source, "/"))]; ok && code != 0 {
		sink(StreamStderr, m.stderr)
		return MirrorResult{ExitCode: code, Stderr: m.stderr}, nil
	}
	if hasArg(req.Args, mirrorDryRunFlag) {
		return MirrorResult{}, nil
	}
	if err := fakeCopy(req); err != nil {
		return MirrorResult{ExitCode: 23, Stderr: err.Error()}, nil
	}
	return MirrorResult{}, nil
}

func (m *fakeMirror) calls() []MirrorRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MirrorRequest(nil), m.requests...)
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func argValues(args []string, prefix string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, prefix) {
			out = append(out, strings.TrimPrefix(a, prefix))
		}
	}
	return out
}

func fakeCopy(req MirrorRequest) error {
	src := strings.TrimRight(req.Source, "/")
	dst := req.Destination
	prefix := ""
	if !strings.HasSuffix(req.Source, "/") {
		prefix = "/" + filepath.Base(src)
		dst = filepath.Join(dst, filepath.Base(src))
	}
	excludes := map[string]bool{}
	for _, p := range argValues(req.Args, "--exclude=") {
		excludes[p] = true
	}
	linkDest := ""
	if v := argValues(req.Args, "--link-dest="); len(v) > 0 {
		linkDest = v[len(v)-1]
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel != "." && excludes[prefix+"/"+filepath.ToSlash(rel)] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if linkDest != "" {
			prev := filepath.Join(linkDest, strings.TrimPrefix(prefix, "/"), rel)
			if sameContent(path, prev) {
				return os.Link(prev, target)
			}
		}
		return copyTestFile(path, target)
	})
}

func sameContent(a, b string) bool {
	// #nosec G304 -- test paths are controlled by the test harness.
	da, err := os.ReadFile(a)
	if err != nil {
		return false
	}
	// #nosec G304 -- test paths are controlled by the test harness.
	db, err := os.ReadFile(b)
	if err != nil {
		return false
	}
	return bytes.Equal(da, db)
}

func copyTestFile(src, dst string) error {
	// #nosec G304 -- test paths are controlled by the test harness.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	// #nosec G304 -- test paths are controlled by the test harness.
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

type fakeScanner struct {
	results map[string]ScanResult
	err     error
	roots   []string
}

func (s *fakeScanner) Scan(ctx context.Context, root string) (ScanResult, error) {
	_ = ctx
	s.roots = append(s.roots, root)
	if s.err != nil {
		return ScanResult{}, s.err
	}
	return s.results[root], nil
}

type mockLock struct {
	mu       sync.Mutex
	held     map[string]LockInfo
	acquired []string
	err      error
}

func newMockLock() *mockLock {
	return &mockLock{held: map[string]LockInfo{}}
}

func (m *mockLock) AcquireLock(ctx context.Context, path string, info LockInfo) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.held[path]; ok {
		return fmt.Errorf("lock is held by another active process: %w", ErrLockBusy)
	}
	m.held[path] = info
	m.acquired = append(m.acquired, path)
	return nil
}

func (m *mockLock) ReleaseLock(ctx context.Context, path string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, path)
	return nil
}

func (m *mockLock) IsLocked(ctx context.Context, path string) (bool, LockInfo, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.held[path]
	return ok, info, nil
}

func (m *mockLock) RefreshLock(ctx context.Context, path string) error {
	_ = ctx
	_ = path
	return nil
}

type mockProcess struct{}

func (mockProcess) GetPID() int { return 4242 }

func (mockProcess) Executable() (string, error) { return "/usr/local/bin/snappy", nil }

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(ctx context.Context, n Notification) error {
	_ = ctx
	r.sent = append(r.sent, n)
	return nil
}

type recordingMetrics struct {
	reports []RunReport
}

func (r *recordingMetrics) RecordRun(ctx context.Context, report RunReport) error {
	_ = ctx
	r.reports = append(r.reports, report)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	deps    *Dependencies
	mirror  *fakeMirror
	scanner *fakeScanner
	lock    *mockLock
	root    string
	src     string
	home    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	env := &testEnv{
		mirror:  &fakeMirror{},
		scanner: &fakeScanner{},
		lock:    newMockLock(),
		root:    filepath.Join(base, "backups"),
		src:     filepath.Join(base, "src"),
		home:    filepath.Join(base, "home"),
	}
	env.deps = &Dependencies{
		FileSystem: newTestFileSystem(),
		Mirror:     env.mirror,
		Scanner:    env.scanner,
		Lock:       env.lock,
		Process:    mockProcess{},
	}
	for _, dir := range []string{env.src, env.home} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return env
}

func (e *testEnv) writeSource(t *testing.T, rel, content string) string {
	t.Helper()
	p := filepath.Join(e.src, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// stepClock makes snapshotNow return distinct seconds on every call.
func stepClock(t *testing.T, start time.Time) {
	t.Helper()
	orig := snapshotNow
	var mu sync.Mutex
	now := start
	snapshotNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	t.Cleanup(func() { snapshotNow = orig })
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.MkdirAll(filepath.Join(root, n), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", n, err)
		}
	}
}
