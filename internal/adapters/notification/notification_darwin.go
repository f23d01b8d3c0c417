//go:build darwin

package notification

func platformBackends() []backend {
	return []backend{
		{command: "terminal-notifier", args: terminalNotifierArgs},
		{command: "osascript", args: osascriptArgs},
	}
}
