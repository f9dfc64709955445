// Package cmd holds the cobra commands of mvnmirror.
//
// The root command only carries the --config flag; `mvnmirror mirror` loads
// configuration through internal/config (file, MIRROR_* environment, flags),
// wires the fetchers, caches, failure tracker, worker and dispatcher, and runs
// until the tree is mirrored or the process receives SIGINT/SIGTERM.
package cmd
