// Package configs embeds configuration templates.
//
// The project template is written by `wikigraph config init` to
// .wikigraph.yaml. Keys mirror internal/config.Config; anything left
// commented out keeps its built-in default.
package configs

import _ "embed"

// ProjectConfigTemplate is the annotated project configuration.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
