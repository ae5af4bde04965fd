// ABOUTME: Audio output tests
// ABOUTME: Tests volume scaling and write-before-open handling
package output

import (
	"testing"
)

func TestOtoImplementsOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		volume  int
		muted   bool
		want    []int16
	}{
		{"full volume", []int16{1000, -1000, 32767}, 100, false, []int16{1000, -1000, 32767}},
		{"half volume", []int16{1000, -1000}, 50, false, []int16{500, -500}},
		{"zero volume", []int16{1000}, 0, false, []int16{0}},
		{"muted", []int16{1000, -32768}, 100, true, []int16{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyVolume(tt.samples, tt.volume, tt.muted)
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("sample %d = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSetVolumeClamps(t *testing.T) {
	o := NewOto(nil)

	o.SetVolume(150)
	if o.GetVolume() != 100 {
		t.Errorf("expected volume 100, got %d", o.GetVolume())
	}
	o.SetVolume(-5)
	if o.GetVolume() != 0 {
		t.Errorf("expected volume 0, got %d", o.GetVolume())
	}

	o.SetMuted(true)
	if !o.IsMuted() {
		t.Error("expected muted")
	}
}

func TestWriteBeforeOpen(t *testing.T) {
	o := NewOto(nil)
	if err := o.Write([]int16{1, 2}); err == nil {
		t.Error("expected error writing before Open")
	}
	o.Drain()
}
