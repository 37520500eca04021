// Package file persists bookchat's retrieval settings as a TOML file
// under the config directory (~/.bookchat by default). It backs the
// driven.ConfigStore port; environment variables overlay these values
// at startup, so the file only holds what the user set explicitly.
package file
