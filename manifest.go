package paradox

import (
	"fmt"
	"strconv"
	"strings"
)

// Variant is one entry of the module's multi-bitrate playlist.
type Variant struct {
	Bandwidth int
	URI       string
}

const streamInfTag = "#EXT-X-STREAM-INF:"

// parseManifest extracts the stream variants of an m3u8 master playlist,
// in document order. Only the BANDWIDTH attribute and the URI line that
// follows each #EXT-X-STREAM-INF tag matter here; everything else the
// module writes is ignored.
func parseManifest(raw string) ([]Variant, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "#EXTM3U" {
		return nil, fmt.Errorf("manifest: missing #EXTM3U header")
	}

	var variants []Variant
	var pending *Variant
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, streamInfTag) {
			bw, err := streamInfBandwidth(strings.TrimPrefix(line, streamInfTag))
			if err != nil {
				return nil, err
			}
			pending = &Variant{Bandwidth: bw}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if pending != nil {
			pending.URI = line
			variants = append(variants, *pending)
			pending = nil
		}
	}
	if pending != nil {
		return nil, fmt.Errorf("manifest: variant with bandwidth %d has no uri", pending.Bandwidth)
	}
	return variants, nil
}

// streamInfBandwidth pulls BANDWIDTH out of a stream-inf attribute list.
// Attribute values may be quoted and contain commas, so a naive split
// will not do.
func streamInfBandwidth(attrs string) (int, error) {
	for _, attr := range splitAttributes(attrs) {
		name, value, ok := strings.Cut(attr, "=")
		if !ok {
			continue
		}
		if strings.ToUpper(strings.TrimSpace(name)) != "BANDWIDTH" {
			continue
		}
		bw, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("manifest: bad bandwidth %q: %w", value, err)
		}
		return bw, nil
	}
	return 0, fmt.Errorf("manifest: stream-inf without bandwidth: %q", attrs)
}

func splitAttributes(s string) []string {
	var out []string
	var quoted bool
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

// selectVariant returns the URI of the first variant whose bandwidth
// matches the tier exactly. There is deliberately no nearest-match
// fallback: a tier the module does not publish yields no source.
func selectVariant(variants []Variant, tier ChannelTier) string {
	want := tier.Bandwidth()
	for _, v := range variants {
		if v.Bandwidth == want {
			return v.URI
		}
	}
	return ""
}
