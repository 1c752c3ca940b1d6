package hls

import (
	"github.com/grafov/m3u8"
	"github.com/parishmedia/hls-encoder/internal/models"
)

// ComposeMaster builds the master manifest from the published renditions, in
// planner order. Renditions that never got a playlist URL are skipped; the
// all-or-nothing encode policy means that should not happen, but a missing
// URL must never produce an unplayable variant entry.
func ComposeMaster(published []models.PublishedRendition) string {
	master := m3u8.NewMasterPlaylist()
	// Segments are encoded with independent_segments, so the master must
	// advertise it for players that seek across variants.
	master.SetIndependentSegments(true)
	for _, pr := range published {
		if pr.PlaylistURL == "" {
			continue
		}
		master.Append(pr.PlaylistURL, &m3u8.MediaPlaylist{}, m3u8.VariantParams{
			Bandwidth:  pr.Rendition.Bandwidth,
			Resolution: pr.Rendition.Resolution,
		})
	}
	return master.String()
}
