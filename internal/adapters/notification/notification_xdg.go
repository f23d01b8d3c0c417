//go:build linux || freebsd || openbsd || netbsd

package notification

func platformBackends() []backend {
	return []backend{{command: "notify-send", args: notifySendArgs}}
}
