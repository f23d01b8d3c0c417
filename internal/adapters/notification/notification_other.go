//go:build !darwin && !linux && !freebsd && !openbsd && !netbsd

package notification

// Windows and the remaining platforms have no notifier backend; Send only logs.
func platformBackends() []backend {
	return nil
}
