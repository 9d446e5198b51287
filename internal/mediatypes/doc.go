// Package mediatypes provides shared extension and MIME type tables for the
// variant server.
//
// It exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles: the queue, handlers, and watcher
// all need to agree on what counts as a source image and what MIME type a
// generated derivative is served with.
package mediatypes
