package models

// Rendition is one fixed-quality variant of the source. Scale is the ffmpeg
// size expression ("?x360"), Resolution the nominal WxH advertised in the
// master manifest. Bandwidth is precomputed by the planner.
type Rendition struct {
	Name         string `json:"name"`
	Scale        string `json:"scale"`
	Resolution   string `json:"resolution"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
	Bandwidth    uint32 `json:"bandwidth"`
}

// PublishedRendition pairs a rendition with the public URL of its rewritten
// variant playlist. SegmentURLs maps local segment filenames to their public
// URLs; DestKeys records every destination object written for the rendition.
type PublishedRendition struct {
	Rendition   Rendition
	PlaylistURL string
	SegmentURLs map[string]string
	DestKeys    []string
}

// PublishedAsset describes a single uploaded object and its access token.
type PublishedAsset struct {
	DestKey      string
	Token        string
	ContentType  string
	CacheControl string
	PublicURL    string
}
