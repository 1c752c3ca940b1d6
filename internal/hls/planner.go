package hls

import (
	"strconv"
	"strings"

	"github.com/parishmedia/hls-encoder/internal/config"
	"github.com/parishmedia/hls-encoder/internal/models"
)

// Fixed per-variant overhead (container + playlist) added on top of the
// audio and video bitrates when advertising BANDWIDTH.
const bandwidthOverhead = 100000

// ParseBitrate converts a shorthand bitrate string ("700k", "1500000") to
// bits per second. Malformed values parse to 0 rather than failing: one bad
// config entry must not abort a whole job.
func ParseBitrate(s string) uint32 {
	n := strings.ToLower(strings.TrimSpace(s))
	if n == "" {
		return 0
	}
	if strings.HasSuffix(n, "k") {
		v, err := strconv.ParseUint(strings.TrimSuffix(n, "k"), 10, 32)
		if err != nil {
			return 0
		}
		return uint32(v * 1000)
	}
	v, err := strconv.ParseUint(n, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}

// PlanRenditions returns the output ladder in ascending quality order. The
// order is load-bearing only for manifest emission, which must stay
// deterministic.
func PlanRenditions(cfg config.HLSConfig) []models.Rendition {
	renditions := []models.Rendition{
		{Name: "360p", Scale: "?x360", Resolution: "640x360", VideoBitrate: cfg.MaxRate360p, AudioBitrate: "96k"},
		{Name: "540p", Scale: "?x540", Resolution: "960x540", VideoBitrate: cfg.MaxRate540p, AudioBitrate: "128k"},
		{Name: "720p", Scale: "?x720", Resolution: "1280x720", VideoBitrate: cfg.MaxRate720p, AudioBitrate: "128k"},
		{Name: "1080p", Scale: "?x1080", Resolution: "1920x1080", VideoBitrate: cfg.MaxRate1080p, AudioBitrate: "160k"},
	}
	for i := range renditions {
		renditions[i].Bandwidth = ParseBitrate(renditions[i].VideoBitrate) +
			ParseBitrate(renditions[i].AudioBitrate) +
			bandwidthOverhead
	}
	return renditions
}
