package assets

import "embed"

// SystemdDir is the embedded directory with systemd user unit templates.
const SystemdDir = "systemd"

// SystemdFS embeds systemd unit templates. Paths inside them use the
// __SNAPPY_BIN__ and __SNAPPY_CONFIG__ placeholders.
//
//go:embed systemd/*
var SystemdFS embed.FS
