package model

// MediaKind is the closed set of payload shapes the relay distinguishes.
// Dispatch on it is always an exhaustive switch; anything the origin client
// cannot classify arrives as MediaUnsupported and is rejected up front
// instead of failing halfway through a transfer.
type MediaKind int

const (
	MediaNone MediaKind = iota // Plain text, no payload.
	MediaPhoto
	MediaDocumentVideo
	MediaDocumentAudio
	MediaDocumentOther
	MediaUnsupported // Polls, dice, geo, contacts and friends.
)

var mediaKindNames = map[MediaKind]string{
	MediaNone:          "none",
	MediaPhoto:         "photo",
	MediaDocumentVideo: "document-video",
	MediaDocumentAudio: "document-audio",
	MediaDocumentOther: "document-other",
	MediaUnsupported:   "unsupported",
}

func (k MediaKind) String() string {
	if name, ok := mediaKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Relayable reports whether the payload can be staged and re-uploaded.
func (k MediaKind) Relayable() bool {
	switch k {
	case MediaNone, MediaPhoto, MediaDocumentVideo, MediaDocumentAudio, MediaDocumentOther:
		return true
	case MediaUnsupported:
		return false
	}
	return false
}
