package domain

import "testing"

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusPending, false},
		{JobStatusClaimed, false},
		{JobStatusPublished, true},
		{JobStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestContent_HasVideo(t *testing.T) {
	noMedia := Content{Text: "hello"}
	if noMedia.HasVideo() {
		t.Error("content without media should not have video")
	}

	images := Content{Media: []MediaRef{
		{URL: "https://cdn.example.com/a.jpg", Kind: MediaKindImage},
		{URL: "https://cdn.example.com/b.jpg", Kind: MediaKindImage},
	}}
	if images.HasVideo() {
		t.Error("image-only content should not have video")
	}

	mixed := Content{Media: []MediaRef{
		{URL: "https://cdn.example.com/a.jpg", Kind: MediaKindImage},
		{URL: "https://cdn.example.com/clip.mp4", Kind: MediaKindVideo},
	}}
	if !mixed.HasVideo() {
		t.Error("content with a video attachment should report HasVideo")
	}
}
