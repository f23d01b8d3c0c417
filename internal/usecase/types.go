package usecase

import "time"

// Config contains all application configuration
type Config struct {
	Destination    string
	Sources        []string
	KeepCount      int
	CleanupStaging bool
	Excludes       []string
	Includes       []string
	MirrorBinary   string
	MirrorArgs     []string
	Verbose        bool
	DryRun         bool
	Notify         bool
	NotifySound    string
	StateDir       string
	HomeDir        string
}

// TemplateEntry describes an embedded template file and its target mode.
type TemplateEntry struct {
	Name string
	Mode int
}

// FileInfo is the subset of os.FileInfo the use cases read.
type FileInfo interface {
	Name() string
	ModTime() time.Time
	IsDir() bool
}

// DirEntry represents a directory entry.
type DirEntry interface {
	Name() string
	IsDir() bool
}

// LockInfo represents lock file information.
type LockInfo struct {
	PID            int       `json:"pid"`
	StartTime      time.Time `json:"start_time"`
	BackupDir      string    `json:"backup_dir"`
	RunID          string    `json:"run_id"`
	Hostname       string    `json:"hostname"`
	ProcessStartID string    `json:"process_start_id"`
}

// MirrorRequest is a fully resolved mirror tool invocation.
type MirrorRequest struct {
	Binary      string
	Args        []string
	Source      string
	Destination string
}

// MirrorResult holds the outcome of a mirror tool run. A non-zero ExitCode is
// not an error on its own; callers interpret it.
type MirrorResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Stream identifies the output stream of a subprocess line.
type Stream int

const (
	// StreamStdout marks lines read from standard output.
	StreamStdout Stream = iota
	// StreamStderr marks lines read from standard error.
	StreamStderr
)

// LineSink receives subprocess output one line at a time, as it arrives.
type LineSink func(stream Stream, line string)

// ScanResult is the raw output of the unreadable-file scan primitive.
type ScanResult struct {
	ExitCode int
	Output   []byte
}

// Notification is a desktop notification request.
type Notification struct {
	Title   string
	Message string
	Sound   string
	Urgent  bool
}

// RunReport summarizes a finished backup run for metrics sinks.
type RunReport struct {
	Destination   string
	SnapshotName  string
	Success       bool
	DryRun        bool
	Started       time.Time
	Duration      time.Duration
	SnapshotCount int
	Excluded      int
	Pruned        int
	PruneFailed   bool
}

// BackupResult contains backup execution details
type BackupResult struct {
	RunID        string
	SnapshotName string
	SnapshotPath string
	DryRun       bool
	LinkDest     string
	Excluded     []string
	Pruned       []string
	PruneErr     error
	Duration     time.Duration
}
