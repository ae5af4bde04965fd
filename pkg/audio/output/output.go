// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for playing back decoded recordings
package output

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs interleaved 16-bit samples (blocks until written)
	Write(samples []int16) error

	// Drain blocks until everything written has been played
	Drain()

	// Close releases output resources
	Close() error
}
