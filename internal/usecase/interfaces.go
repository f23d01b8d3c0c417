package usecase

import (
	"context"
)

// Dependencies represents all external dependencies needed by use cases
type Dependencies struct {
	FileSystem   FileSystemPort
	Mirror       MirrorPort
	Scanner      ScannerPort
	Lock         LockPort
	Process      ProcessPort
	Config       ConfigPort
	Templates    TemplatesPort
	Notification NotificationPort
	Metrics      MetricsPort
	Scheduler    SchedulerPort
}

// Ports define the interfaces that use cases need (hexagonal architecture)

// FileSystemPort defines filesystem operations needed by use cases
type FileSystemPort interface {
	// Core file operations
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte, perm int) error
	CreateDir(ctx context.Context, path string, perm int) error
	CreateDirExclusive(ctx context.Context, path string, perm int) error
	RemoveAll(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (FileInfo, error)
	ReadDir(ctx context.Context, path string) ([]DirEntry, error)

	// Rename moves a file or directory within the same filesystem.
	Move(ctx context.Context, src, dst string) error

	// Path operations
	Abs(ctx context.Context, path string) (string, error)
	Join(elements ...string) string
	Base(path string) string
	Dir(path string) string
	Rel(basepath, targpath string) (string, error)
	Clean(path string) string
	VolumeName(path string) string
	PathSeparator() byte

	// IsNotExist also matches a path component that is not a directory.
	IsNotExist(err error) bool
}

// MirrorPort runs the external mirror tool (rsync).
type MirrorPort interface {
	// LookPath resolves binary on the system search path.
	LookPath(ctx context.Context, binary string) (string, error)

	// Run executes the tool and blocks until it exits. Every output line is
	// passed to sink as it arrives. A non-zero exit is reported through
	// MirrorResult.ExitCode, not as an error; err is set only when the
	// process could not be started or its output could not be read.
	Run(ctx context.Context, req MirrorRequest, sink LineSink) (MirrorResult, error)
}

// ScannerPort runs the unreadable-file scan primitive.
type ScannerPort interface {
	// Scan returns newline-delimited absolute paths under root that the
	// current user cannot read.
	Scan(ctx context.Context, root string) (ScanResult, error)
}

// ConfigPort defines configuration operations needed by use cases
type ConfigPort interface {
	Load(ctx context.Context, path string) (ConfigFile, error)
	Save(ctx context.Context, path string, cfg ConfigFile) error
	Validate(cfg ConfigFile) error
}

// TemplatesPort defines access to embedded templates
type TemplatesPort interface {
	List(ctx context.Context) ([]TemplateEntry, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// LockPort defines locking operations needed by use cases
type LockPort interface {
	AcquireLock(ctx context.Context, path string, info LockInfo) error
	ReleaseLock(ctx context.Context, path string) error
	IsLocked(ctx context.Context, path string) (bool, LockInfo, error)
	RefreshLock(ctx context.Context, path string) error
}

// ProcessPort defines process operations needed by use cases
type ProcessPort interface {
	GetPID() int
	// Executable returns the absolute path of the running binary.
	Executable() (string, error)
}

// NotificationPort defines desktop notification operations needed by use cases
type NotificationPort interface {
	Send(ctx context.Context, n Notification) error
}

// MetricsPort records the outcome of backup runs.
type MetricsPort interface {
	RecordRun(ctx context.Context, report RunReport) error
}

// SchedulerPort runs a job on a cron schedule until ctx is canceled.
type SchedulerPort interface {
	// Run blocks until ctx is done. Overlapping ticks are skipped while a job
	// is still running.
	Run(ctx context.Context, spec string, job func(ctx context.Context)) error
}
