// Package configs embeds the configuration templates written by
// `fsindex config init`.
package configs

import _ "embed"

// UserConfigTemplate is written to ~/.config/fsindex/config.yaml. Every
// setting is present but commented out, so the file starts as a no-op.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written to .fsindex.yaml with --project.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
