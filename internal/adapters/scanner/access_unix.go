//go:build !windows

package scanner

import "golang.org/x/sys/unix"

func accessReadable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
