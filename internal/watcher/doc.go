// Package watcher keeps the derivative cache consistent with the media tree.
//
// It monitors the media directory recursively with fsnotify and, when a
// source image is removed or renamed, asks the service to sweep every
// derivative and queue descriptor generated from it. Derivatives vanishing
// on their own (cache eviction, manual cleanup) are ignored since their
// filenames match the variation pattern.
//
// Newly created directories are added to the watch on the fly so sources
// uploaded into fresh subdirectories are covered without a restart.
package watcher
