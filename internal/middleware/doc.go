// Package middleware provides HTTP middleware for request logging, Prometheus
// metrics, and response compression.
//
// The logging middleware emits W3C Extended Log Format lines. Unlike a typical
// web app, image requests are the primary traffic here and are always logged;
// only web asset extensions (css, js, fonts) are skipped by default.
//
// The metrics middleware records request counts and durations with normalized
// paths so the wildcard media routes do not explode label cardinality.
package middleware
