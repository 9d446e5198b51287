// Package service is the facade over the derivative machinery: callers ask
// for a variant of a source image and get back a servable reference.
//
// Resolve runs the full chain (parameter resolution, dimension completion,
// cache-path computation) and then consults the cache. The filesystem is the
// only authority: an existing file is a hit, a missing file is generated now
// (immediate mode) or queued behind a descriptor (deferred mode, the
// default). FulfillOnMiss is the other half of deferred mode, invoked by the
// HTTP layer when a request targets a path that has a descriptor but no
// file.
//
// The service also implements the srcset Deriver, so width ladders flow
// through the same hit/generate/defer logic per rung, and owns derivative
// cleanup when a source disappears.
package service
