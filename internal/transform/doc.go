// Package transform executes the derivative pipeline: geometric pre-ops,
// crop/resize strategy selection, tonal effects, and format encoding.
//
// Decoding and pixel work go through the imaging library; webp and avif
// encoding goes through libvips. The pipeline order is fixed — rotate and
// flip first, then the crop or scale, then effects in a stable sequence,
// then the encode — because reordering it would change pixel output and
// silently fork the derivative cache.
package transform
