// Package handlers provides HTTP request handlers for the variant server API.
//
// It includes handlers for:
//   - Media file serving with on-miss derivative generation
//   - Variation descriptor resolution
//   - Srcset and img-tag attribute building
//   - Ledger statistics
//   - Health checks and version info
package handlers
