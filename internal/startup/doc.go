// Package startup handles configuration loading (environment variables
// layered over an optional YAML file), directory validation, and the
// structured startup/shutdown logging.
package startup
