// Package filesystem provides the publish and cleanup primitives the
// derivative cache is built on.
//
// Derivatives and queue descriptors live beside their source image, so the
// filesystem is the only shared state between server processes. Three
// guarantees matter and are centralized here:
//
//   - WriteFileExclusive: at most one writer creates a queue descriptor, and
//     a reader never observes partial descriptor content.
//   - WriteFileAtomic: a derivative becomes visible only as a complete file
//     (temp file + rename within the target directory).
//   - Siblings: enumerating every derivative/descriptor belonging to a source
//     so deletion of the source can sweep them.
//
// Stat retries tolerate stale NFS handles, which show up when the media
// volume is network-mounted and another host replaces a file.
package filesystem
