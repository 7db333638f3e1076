package media

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"
)

// Metadata is the synthetic record derived from a video upload's declared size
// and MIME type. No decoding happens; every field is a deterministic function
// of (size, mimeType, filename).
type Metadata struct {
	Duration         string `json:"duration"`
	Resolution       string `json:"resolution"`
	FrameRate        string `json:"frameRate"`
	Format           string `json:"format"`
	Codec            string `json:"codec"`
	CreationDate     string `json:"creationDate"`
	FileSize         string `json:"fileSize"`
	Bitrate          string `json:"bitrate"`
	OriginalFileName string `json:"originalFileName"`
	MIMEType         string `json:"mimeType"`
}

// MetadataExtractor isolates the heuristic so callers are untouched if it is
// ever replaced with real demuxing.
type MetadataExtractor interface {
	Extract(filename, mimeType string, sizeBytes int64, now time.Time) Metadata
}

// HeuristicExtractor buckets by file size. Thresholds are load-bearing for
// behavioral compatibility; change them and recorded assessments shift.
type HeuristicExtractor struct{}

func (HeuristicExtractor) Extract(filename, mimeType string, sizeBytes int64, now time.Time) Metadata {
	ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = "UNKNOWN"
	}
	return Metadata{
		Duration:         estimateDuration(sizeBytes),
		Resolution:       estimateResolution(sizeBytes),
		FrameRate:        "30 fps",
		Format:           ext,
		Codec:            codecFromMIME(mimeType),
		CreationDate:     now.UTC().Format(time.RFC3339),
		FileSize:         formatFileSize(sizeBytes),
		Bitrate:          estimateBitrate(sizeBytes),
		OriginalFileName: filename,
		MIMEType:         mimeType,
	}
}

const (
	mb = 1024 * 1024

	// size buckets
	bucket1080p = 50 * mb
	bucket720p  = 20 * mb
	bucket480p  = 5 * mb
)

func estimateResolution(sizeBytes int64) string {
	switch {
	case sizeBytes > bucket1080p:
		return "1920x1080"
	case sizeBytes > bucket720p:
		return "1280x720"
	case sizeBytes > bucket480p:
		return "854x480"
	default:
		return "640x360"
	}
}

// estimateDuration assumes a flat 2 Mbps average bitrate.
func estimateDuration(sizeBytes int64) string {
	const avgBytesPerSecond = 2 * mb / 8
	seconds := sizeBytes / avgBytesPerSecond
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func estimateBitrate(sizeBytes int64) string {
	switch sizeMB := sizeBytes / mb; {
	case sizeMB > 50:
		return "3.5 Mbps"
	case sizeMB > 20:
		return "2.5 Mbps"
	case sizeMB > 5:
		return "1.5 Mbps"
	default:
		return "1.0 Mbps"
	}
}

func codecFromMIME(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "mov"), strings.Contains(mimeType, "quicktime"):
		return "H.264"
	case strings.Contains(mimeType, "webm"):
		return "VP8/VP9"
	case strings.Contains(mimeType, "avi"):
		return "XVID"
	default:
		return "Unknown"
	}
}

func formatFileSize(bytes int64) string {
	if bytes == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	v := float64(bytes) / math.Pow(1024, float64(i))
	return fmt.Sprintf("%s %s", trimZeros(v), units[i])
}

func trimZeros(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
