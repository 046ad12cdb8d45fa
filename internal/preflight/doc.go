// Package preflight provides readiness checks for the tools and filesystem
// paths gazeheat depends on.
//
// The serve command runs RunAll before binding so a missing ffmpeg or an
// unwritable output directory is reported up front instead of on the first
// upload. The deps command prints the same results.
package preflight
