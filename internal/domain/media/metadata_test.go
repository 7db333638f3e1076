package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExtract_LargeMP4(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := HeuristicExtractor{}.Extract("clip.mp4", "video/mp4", 60*1024*1024, now)

	require.Equal(t, "1920x1080", m.Resolution)
	require.Equal(t, "H.264", m.Codec)
	require.Equal(t, "3.5 Mbps", m.Bitrate)
	require.Equal(t, "4:00", m.Duration)
	require.Equal(t, "60 MB", m.FileSize)
	require.Equal(t, "30 fps", m.FrameRate)
	require.Equal(t, "MP4", m.Format)
	require.Equal(t, "2026-03-01T12:00:00Z", m.CreationDate)
	require.Equal(t, "clip.mp4", m.OriginalFileName)
}

func TestExtract_Deterministic(t *testing.T) {
	now := time.Now()
	a := HeuristicExtractor{}.Extract("a.webm", "video/webm", 10*1024*1024, now)
	b := HeuristicExtractor{}.Extract("a.webm", "video/webm", 10*1024*1024, now)
	require.Equal(t, a, b)
}

func TestEstimateResolution_Buckets(t *testing.T) {
	const mib = int64(1024 * 1024)
	cases := []struct {
		size int64
		want string
	}{
		{51 * mib, "1920x1080"},
		{50 * mib, "1280x720"}, // boundary is exclusive
		{21 * mib, "1280x720"},
		{20 * mib, "854x480"},
		{6 * mib, "854x480"},
		{5 * mib, "640x360"},
		{100, "640x360"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, estimateResolution(tc.size), "size %d", tc.size)
	}
}

func TestCodecFromMIME(t *testing.T) {
	require.Equal(t, "H.264", codecFromMIME("video/quicktime"))
	require.Equal(t, "VP8/VP9", codecFromMIME("video/webm"))
	require.Equal(t, "XVID", codecFromMIME("video/avi"))
	require.Equal(t, "Unknown", codecFromMIME("video/x-matroska"))
}

func TestFormatFileSize(t *testing.T) {
	require.Equal(t, "0 Bytes", formatFileSize(0))
	require.Equal(t, "512 Bytes", formatFileSize(512))
	require.Equal(t, "1 KB", formatFileSize(1024))
	require.Equal(t, "1.5 MB", formatFileSize(1536*1024))
}

func TestExtract_UnknownExtension(t *testing.T) {
	m := HeuristicExtractor{}.Extract("noext", "video/mp4", 1024, time.Now())
	require.Equal(t, "UNKNOWN", m.Format)
}
