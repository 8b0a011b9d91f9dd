// Package cmd implements the command-line interface of the investment blog's post
// store. It provides a hierarchical command structure for managing posts locally,
// reconciling them with the remote and running the posts REST service.
//
// The package is organized into several subpackages:
//
//   - posts: post put/get/list/latest/delete and sync
//   - serve: the posts REST service and its statistics
//   - quote: daily prices of stocks referenced by posts
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See blog -help for a list of all commands.
package cmd
