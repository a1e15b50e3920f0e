package domain

type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// MediaRef is an opaque reference to already-uploaded media.
// Storage and transcoding happen elsewhere; adapters pass the URL through.
type MediaRef struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
}

// Content is the platform-agnostic payload of a publish job.
type Content struct {
	Text    string     `json:"text"`
	Media   []MediaRef `json:"media,omitempty"`
	LinkURL string     `json:"link_url,omitempty"`
}

// HasVideo reports whether any attached media is a video.
func (c Content) HasVideo() bool {
	for _, m := range c.Media {
		if m.Kind == MediaKindVideo {
			return true
		}
	}
	return false
}
