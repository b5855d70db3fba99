// Package logging provides structured JSON logging with size-based file
// rotation for wikigraph.
//
// Commands log through slog.Default(). Without --debug or a configured log
// file only warnings and errors reach stderr. The serve command uses
// SetupServerMode, which never writes to stdout or stderr because stdout
// carries the MCP protocol stream.
package logging
