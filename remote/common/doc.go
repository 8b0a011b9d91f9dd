// Package common provides the configuration structures and the logger shared by the
// remote adapters, the REST server and the command line.
//
// Key Components:
//
//   - BlogConfig: local storage, backend selection, GitHub target and sync timing.
//     The GitHub token is kept here but never rendered by String.
//
//   - ServerConfig: listen address and relational storage of the posts service.
//
//   - ClientConfig: endpoints, timeout and retries of the HTTP transport.
//
//   - Logger: a logger.ILogger implementation for dragonboat's logger registry with
//     the format "LEVEL | package | message". InitLoggers installs it and sets the
//     level of every named logger of the application.
package common
