// Package logtail reads the end of Lumen's own log file for the in-app log
// view.
//
// Read keeps a ring buffer of the last N lines, so memory stays bounded by
// the requested line count rather than the file size. Classify assigns a
// coarse severity to a line so the view can color it; the standard logger
// writes no level, so the guess is based on wording.
package logtail
