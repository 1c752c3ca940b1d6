package pipeline

import (
	"testing"

	"github.com/parishmedia/hls-encoder/internal/models"
	"github.com/stretchr/testify/require"
)

func TestIsVideoObject(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		objectKey   string
		want        bool
	}{
		{"raw mp4 upload", "video/mp4", "sermons/uploads/sunday.mp4", true},
		{"quicktime upload", "video/quicktime", "sermons/uploads/sunday.mov", true},
		{"image upload", "image/jpeg", "sermons/uploads/poster.jpg", false},
		{"audio upload", "audio/mpeg", "sermons/uploads/podcast.mp3", false},
		{"own segment output", "video/mp2t", "sermons/hls/sunday/360p/segment_001.ts", false},
		{"own playlist output", "application/x-mpegURL", "sermons/hls/sunday/master.m3u8", false},
		{"ts outside hls path", "video/mp2t", "sermons/uploads/clip.ts", false},
		{"m4s outside hls path", "video/iso.segment", "sermons/uploads/clip.m4s", false},
		{"missing content type", "", "sermons/uploads/sunday.mp4", false},
		{"missing key", "video/mp4", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := &models.UploadEvent{
				Bucket:      "parish-media",
				ObjectKey:   tc.objectKey,
				ContentType: tc.contentType,
			}
			require.Equal(t, tc.want, IsVideoObject(event))
		})
	}
}

func TestIsVideoObjectNilEvent(t *testing.T) {
	require.False(t, IsVideoObject(nil))
}

func TestHasSupportedExtension(t *testing.T) {
	cases := []struct {
		objectKey string
		want      bool
	}{
		{"sermons/uploads/sunday.mp4", true},
		{"sermons/uploads/sunday.mov", true},
		{"sermons/uploads/sunday.mkv", true},
		{"sermons/uploads/sunday.webm", true},
		{"sermons/uploads/SUNDAY.MP4", true},
		{"sermons/uploads/sunday.avi", false},
		{"sermons/uploads/sunday.flv", false},
		{"sermons/uploads/sunday", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, HasSupportedExtension(tc.objectKey), tc.objectKey)
	}
}
