// Package variant defines the canonical request descriptor for an image
// derivative and the deterministic mapping from a descriptor to its cache
// path.
//
// Call sites hand over loosely-shaped arguments (named size keys, raw
// numbers, option maps, shorthand scalars). Resolve normalizes them once at
// the boundary into a strongly-typed Options value; nothing downstream ever
// re-inspects argument shape. VariationPath then encodes the resolved
// request into a collision-free derivative filename, so equal requests
// always land on the same cached file.
package variant
