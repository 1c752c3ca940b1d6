package hls

import "strings"

// RewriteVariantPlaylist replaces every line that exactly matches a known
// segment filename with that segment's public URL. Directives, blank lines
// and anything unrecognized pass through byte-for-byte, which also makes the
// rewrite idempotent: re-running it on already-absolute URLs changes
// nothing.
func RewriteVariantPlaylist(playlist string, segmentURLs map[string]string) string {
	lines := strings.Split(playlist, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if url, ok := segmentURLs[t]; ok {
			lines[i] = url
		}
	}
	return strings.Join(lines, "\n")
}
