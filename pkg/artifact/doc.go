// ABOUTME: Recording artifact package
// ABOUTME: Assembles encoded chunks into one immutable artifact per session
// Package artifact collects encoded chunks in arrival order and seals
// them into an Artifact exactly once.
//
// Example:
//
//	asm := artifact.NewAssembler("audio/ogg;codecs=opus")
//	err := asm.Append(chunk)
//	art, err := asm.Finalize()
//	fmt.Println(art.Filename(), art.Size())
package artifact
