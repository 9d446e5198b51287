// Package startup handles application initialization: environment
// configuration with .env support, directory validation, responsive profile
// loading, and the structured startup/shutdown log blocks.
//
// LoadConfig produces one immutable Config that is passed by reference into
// every component; nothing mutates it after startup.
package startup
