// Package queue implements deferred derivative generation through small
// filesystem work descriptors.
//
// When a render chooses not to generate synchronously, Enqueue persists a
// descriptor at "<derivative path>.queue" and the caller returns the
// derivative URL immediately. The browser's follow-up request for that URL
// misses the file, and the miss handler calls FulfillOnMiss, which decodes
// the descriptor, runs the transform, publishes the derivative atomically
// and deletes the descriptor. The descriptor file is the only state shared
// between the two moments; nothing in memory survives between them.
//
// Concurrent misses on the same path are collapsed per process with a
// singleflight group; across processes the atomic publish makes the
// duplicate-generation race harmless.
package queue
