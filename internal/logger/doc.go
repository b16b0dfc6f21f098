// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a sane console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The installer maps its verbose flag onto log levels: verbose runs log
// lifecycle steps at the info level, non-verbose runs raise the level to
// error so that only fatal problems reach the terminal.
package logger
