package models

// ContentRecord is the external catalog entry (a sermon). The catalog knows
// nothing about pipeline runs; StoragePath and VideoURL are the only handles
// the reconciler can match against.
type ContentRecord struct {
	ID          string `json:"id"`
	StoragePath string `json:"storagePath,omitempty"`
	VideoURL    string `json:"videoUrl,omitempty"`
}

// HLSCallback is the payload delivered to the catalog once a manifest is
// published. DurationSec and Thumbnails are omitted when unknown.
type HLSCallback struct {
	HLSUrl      string      `json:"hlsUrl"`
	DurationSec *float64    `json:"durationSec,omitempty"`
	Thumbnails  *Thumbnails `json:"thumbnails,omitempty"`
}

type Thumbnails struct {
	Poster string `json:"poster"`
}
