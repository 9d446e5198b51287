// Package responsive parses the compact responsive-design configuration
// (breakpoints, aspect ratios, scale factors, column fractions) and resolves
// target dimensions from it.
//
// The configuration is a line-oriented mini-language. Each line is one of:
//
//	value=key|label
//	value=key
//	value
//
// A leading + on the key marks that entry as the table default. Breakpoint
// values are integer pixel widths; ratio values are colon-separated
// width:height unit pairs. Factor and fraction lists are comma-separated.
package responsive
