// ABOUTME: Export collaborators for finished recordings
// ABOUTME: Saves artifacts to disk and plays them back
// Package export consumes finished artifacts. It never sees live audio:
// everything here starts from an immutable artifact.Artifact.
package export
