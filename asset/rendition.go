package asset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Quality tiers, best to worst. A tier request cascades downward until
// a rendition is actually present on the asset.
var tierCascade = []string{"high", "medium", "low"}

type tableKey struct {
	tier   string
	family string
}

// renditionTable lists candidate rendition names per (tier, family),
// in preference order.
var renditionTable = map[tableKey][]string{
	{"high", "stream"}:   {"h264_2160", "h264_1080_best"},
	{"medium", "stream"}: {"h264_720"},
	{"low", "stream"}:    {"h264_540", "h264_360"},
	{"high", "image"}:    {"image_high"},
	{"medium", "image"}:  {"image_full"},
	{"low", "image"}:     {"image_small"},
}

// renditionKeys is every rendition name the table knows about, used to
// sweep flat keys off the wire record.
var renditionKeys = func() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, names := range renditionTable {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				keys = append(keys, name)
			}
		}
	}
	return keys
}()

// family maps the asset's type to a rendition family: documents get
// image renditions, everything else gets stream renditions.
func family(a *Asset) string {
	if a.AssetType == "document" {
		return "image"
	}
	return "stream"
}

// ResolveRendition picks the rendition for a requested quality.
// The request is one of: empty or "original" (the original media), an
// explicit rendition name (direct lookup, no fallback), or a tier name
// (cascade from that tier downward, falling back to the original when
// nothing is present).
func ResolveRendition(a *Asset, request string) (name, url string, err error) {
	if request == "" || request == "original" {
		return "original", a.OriginalURL, nil
	}

	if !isTier(request) {
		url, ok := a.Renditions[request]
		if !ok {
			return "", "", fmt.Errorf("%w: %s (%s)", ErrNoRendition, request, a.Name)
		}
		return request, url, nil
	}

	fam := family(a)
	start := tierIndex(request)
	for _, tier := range tierCascade[start:] {
		for _, candidate := range renditionTable[tableKey{tier, fam}] {
			if url, ok := a.Renditions[candidate]; ok && url != "" {
				return candidate, url, nil
			}
		}
	}

	return "original", a.OriginalURL, nil
}

func isTier(s string) bool {
	return tierIndex(s) >= 0
}

func tierIndex(s string) int {
	for i, tier := range tierCascade {
		if tier == s {
			return i
		}
	}
	return -1
}

// RenditionFilename derives the local filename for a download.
// Originals keep the asset name; renditions are tagged with the
// rendition name and its container extension.
func RenditionFilename(assetName, rendition string) string {
	if rendition == "" || rendition == "original" {
		return assetName
	}
	ext := "mp4"
	if strings.Contains(rendition, "image") {
		ext = "jpeg"
	}
	base := strings.TrimSuffix(assetName, filepath.Ext(assetName))
	return fmt.Sprintf("%s.%s.%s", base, rendition, ext)
}
