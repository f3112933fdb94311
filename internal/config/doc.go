// Package config loads termrepl settings.
//
// Settings come from three sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. TERMREPL_* environment variables
//
// Command line flags are applied by the caller on top of the result.
//
// # Configuration Files
//
//	# ~/.config/termrepl/config.toml
//	[repl]
//	prompt = "Ready. "
//	history_limit = 500
//
//	[storage]
//	dir = "~/basic"
//
//	[log]
//	level = "debug"
//	file = "/tmp/termrepl.log"
//
//	[web]
//	listen = ":8080"
//	allowed_origins = ["https://example.com"]
//
// # Environment
//
// TERMREPL_<SECTION>_<KEY> sets section.key, e.g. TERMREPL_REPL_PROMPT or
// TERMREPL_REPL_HISTORY_LIMIT. Lists are comma separated.
//
// # Live Reload
//
// A Store holds the active configuration. WatchFile reloads the file into
// the store whenever it changes; readers such as the prompt function see
// the new values on their next call.
package config
