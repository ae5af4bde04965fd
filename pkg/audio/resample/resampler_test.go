// ABOUTME: Tests for audio resampler
// ABOUTME: Tests linear interpolation and block-to-block continuity
package resample

import (
	"testing"
)

func TestNew(t *testing.T) {
	r := New(44100, 48000, 2)

	if r == nil {
		t.Fatal("expected resampler to be created")
	}

	if r.inputRate != 44100 {
		t.Errorf("expected inputRate 44100, got %d", r.inputRate)
	}

	if r.outputRate != 48000 {
		t.Errorf("expected outputRate 48000, got %d", r.outputRate)
	}

	if r.channels != 2 {
		t.Errorf("expected channels 2, got %d", r.channels)
	}
}

func TestPassthrough(t *testing.T) {
	r := New(48000, 48000, 1)
	if !r.Passthrough() {
		t.Fatal("expected passthrough for equal rates")
	}

	input := []int16{1, 2, 3, 4}
	output := r.Process(input)
	if len(output) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(output))
	}
	input[0] = 99
	if output[0] != 1 {
		t.Error("passthrough output shares memory with input")
	}
}

func TestUpsamplingLength(t *testing.T) {
	// 44100 -> 48000, fed in 441-frame blocks (10ms)
	r := New(44100, 48000, 2)

	total := 0
	for block := 0; block < 100; block++ {
		input := make([]int16, 441*2)
		for i := range input {
			input[i] = 1000
		}
		total += len(r.Process(input)) / 2
	}

	// One second of input should give about one second of output
	if total < 47990 || total > 48000 {
		t.Errorf("expected ~48000 frames, got %d", total)
	}
}

func TestDownsamplingLength(t *testing.T) {
	r := New(48000, 16000, 1)

	total := 0
	for block := 0; block < 50; block++ {
		total += len(r.Process(make([]int16, 960)))
	}

	if total < 15990 || total > 16000 {
		t.Errorf("expected ~16000 frames, got %d", total)
	}
}

func TestConstantSignalStaysConstant(t *testing.T) {
	r := New(44100, 48000, 1)

	for block := 0; block < 10; block++ {
		input := make([]int16, 128)
		for i := range input {
			input[i] = -1234
		}
		for i, s := range r.Process(input) {
			if s != -1234 {
				t.Fatalf("block %d sample %d = %d, want -1234", block, i, s)
			}
		}
	}
}

func TestBlockSplitMatchesSingleCall(t *testing.T) {
	// 2x upsampling keeps positions exact in floating point
	input := make([]int16, 64)
	for i := range input {
		input[i] = int16(i * 100)
	}

	whole := New(24000, 48000, 1).Process(input)

	split := New(24000, 48000, 1)
	var parts []int16
	parts = append(parts, split.Process(input[:20])...)
	parts = append(parts, split.Process(input[20:45])...)
	parts = append(parts, split.Process(input[45:])...)

	if len(parts) != len(whole) {
		t.Fatalf("split produced %d samples, single call produced %d", len(parts), len(whole))
	}
	for i := range whole {
		if parts[i] != whole[i] {
			t.Errorf("sample %d: split=%d single=%d", i, parts[i], whole[i])
		}
	}
}

func TestInterpolatedValues(t *testing.T) {
	r := New(24000, 48000, 1)
	output := r.Process([]int16{0, 100, 200})

	want := []int16{0, 50, 100, 150}
	if len(output) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(output), output)
	}
	for i := range want {
		if output[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, output[i], want[i])
		}
	}
}

func TestReset(t *testing.T) {
	r := New(24000, 48000, 1)
	r.Process([]int16{100, 200, 300})
	r.Reset()

	if r.position != 0 || r.primed {
		t.Error("expected reset to clear position and history")
	}

	output := r.Process([]int16{0, 100})
	if len(output) != 2 || output[0] != 0 || output[1] != 50 {
		t.Errorf("unexpected output after reset: %v", output)
	}
}
