package asset

import (
	"errors"
	"testing"
)

func TestResolveRendition_Original(t *testing.T) {
	a := &Asset{Name: "clip.mov", OriginalURL: "https://cdn/orig"}

	for _, request := range []string{"", "original"} {
		name, url, err := ResolveRendition(a, request)
		if err != nil {
			t.Fatalf("Request %q: unexpected error %v", request, err)
		}
		if name != "original" || url != "https://cdn/orig" {
			t.Errorf("Request %q: got %s / %s", request, name, url)
		}
	}
}

func TestResolveRendition_TierCascade(t *testing.T) {
	tests := []struct {
		name       string
		assetType  string
		renditions map[string]string
		request    string
		wantName   string
	}{
		{
			name:       "best candidate within tier",
			renditions: map[string]string{"h264_2160": "u1", "h264_1080_best": "u2"},
			request:    "high",
			wantName:   "h264_2160",
		},
		{
			name:       "second candidate within tier",
			renditions: map[string]string{"h264_1080_best": "u2"},
			request:    "high",
			wantName:   "h264_1080_best",
		},
		{
			name:       "cascade down to medium",
			renditions: map[string]string{"h264_720": "u3"},
			request:    "high",
			wantName:   "h264_720",
		},
		{
			name:       "cascade down to low",
			renditions: map[string]string{"h264_360": "u4"},
			request:    "high",
			wantName:   "h264_360",
		},
		{
			name:       "medium never looks up",
			renditions: map[string]string{"h264_2160": "u1", "h264_540": "u5"},
			request:    "medium",
			wantName:   "h264_540",
		},
		{
			name:       "document uses image renditions",
			assetType:  "document",
			renditions: map[string]string{"image_full": "u6", "h264_2160": "u1"},
			request:    "high",
			wantName:   "image_full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Asset{
				Name:        "clip.mov",
				AssetType:   tt.assetType,
				OriginalURL: "https://cdn/orig",
				Renditions:  tt.renditions,
			}
			name, url, err := ResolveRendition(a, tt.request)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if name != tt.wantName {
				t.Errorf("Expected rendition %s, got %s", tt.wantName, name)
			}
			if url != tt.renditions[tt.wantName] {
				t.Errorf("Expected url %s, got %s", tt.renditions[tt.wantName], url)
			}
		})
	}
}

func TestResolveRendition_ExhaustedCascadeFallsBack(t *testing.T) {
	a := &Asset{Name: "clip.mov", OriginalURL: "https://cdn/orig"}

	name, url, err := ResolveRendition(a, "high")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if name != "original" || url != "https://cdn/orig" {
		t.Errorf("Expected original fallback, got %s / %s", name, url)
	}
}

func TestResolveRendition_ExplicitName(t *testing.T) {
	a := &Asset{
		Name:        "clip.mov",
		OriginalURL: "https://cdn/orig",
		Renditions:  map[string]string{"h264_720": "u3"},
	}

	name, url, err := ResolveRendition(a, "h264_720")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if name != "h264_720" || url != "u3" {
		t.Errorf("Expected direct lookup, got %s / %s", name, url)
	}

	// An explicit name never cascades or falls back
	_, _, err = ResolveRendition(a, "h264_2160")
	if !errors.Is(err, ErrNoRendition) {
		t.Errorf("Expected ErrNoRendition, got %v", err)
	}
}

func TestRenditionFilename(t *testing.T) {
	tests := []struct {
		assetName string
		rendition string
		want      string
	}{
		{"clip.mov", "original", "clip.mov"},
		{"clip.mov", "", "clip.mov"},
		{"clip.mov", "h264_720", "clip.h264_720.mp4"},
		{"scan.pdf", "image_high", "scan.image_high.jpeg"},
		{"noext", "h264_540", "noext.h264_540.mp4"},
	}

	for _, tt := range tests {
		if got := RenditionFilename(tt.assetName, tt.rendition); got != tt.want {
			t.Errorf("RenditionFilename(%q, %q): expected %s, got %s",
				tt.assetName, tt.rendition, tt.want, got)
		}
	}
}
