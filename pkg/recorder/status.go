// ABOUTME: User-facing status reporting
// ABOUTME: Status sink interface and the messages a session emits
package recorder

import (
	"fmt"

	"go.uber.org/zap"
)

// Status messages shown to the user
const (
	StatusRequesting        = "Requesting microphone access…"
	StatusGranted           = "Microphone access granted."
	StatusDenied            = "Microphone access denied or an error occurred."
	StatusNoInput           = "This platform does not support microphone input."
	StatusNoRecording       = "This platform does not support recording."
	StatusRecording         = "Recording…"
	StatusStoppedWithErrors = "Recording stopped with errors."
)

// StatusSaved formats the message for a finished recording
func StatusSaved(size string) string {
	return fmt.Sprintf("Recording saved (%s). Download is ready.", size)
}

// StatusSink receives user-facing status messages
type StatusSink interface {
	SetStatus(message string)
}

// StatusFunc adapts a function to StatusSink
type StatusFunc func(message string)

// SetStatus calls f
func (f StatusFunc) SetStatus(message string) { f(message) }

// MultiStatus fans status messages out to several sinks
func MultiStatus(sinks ...StatusSink) StatusSink {
	return StatusFunc(func(message string) {
		for _, s := range sinks {
			if s != nil {
				s.SetStatus(message)
			}
		}
	})
}

// LogStatus writes status messages to a logger
func LogStatus(logger *zap.Logger) StatusSink {
	return StatusFunc(func(message string) {
		logger.Info("status", zap.String("message", message))
	})
}
