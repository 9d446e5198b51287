// Package srcset derives the width ladder for responsive markup and
// assembles srcset/sizes/img attributes from it.
//
// At startup, RegisterNamedSizes crosses every configured aspect ratio with
// every column fraction against the default breakpoint width and registers
// the results as named sizes, so call sites can ask for "landscape" or
// "square-1-2" instead of pixel pairs. Per request, Builder scales a base
// width through the configured factors, snaps near-native widths onto the
// source width to avoid pointless re-encodes, and emits one derivative
// reference per distinct width.
package srcset
