package asset

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Structural errors raised at the service boundary. These are never
// retried; a request missing its parent or payload is invalid, not
// transient.
var (
	ErrMissingParent  = errors.New("asset: parent id must be specified")
	ErrMissingPayload = errors.New("asset: payload must be specified")
	ErrNoRendition    = errors.New("asset: rendition not available")
)

// Kind discriminates the asset variants the service returns.
type Kind string

const (
	KindFile         Kind = "file"
	KindFolder       Kind = "folder"
	KindVersionStack Kind = "version_stack"
)

// Asset is one record from the remote store. For files created through
// CreateAsset, UploadURLs holds the presigned destination for each
// chunk; the service fixes the count, the caller derives chunk sizes
// from it.
type Asset struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Kind        Kind              `json:"_type"`
	ParentID    string            `json:"parent_id"`
	Filesize    int64             `json:"filesize"`
	Filetype    string            `json:"filetype"`
	AssetType   string            `json:"asset_type"`
	OriginalURL string            `json:"original"`
	UploadURLs  []string          `json:"upload_urls"`
	Renditions  map[string]string `json:"-"`
	Cover       *Asset            `json:"cover_asset"`
}

// UnmarshalJSON decodes the fixed fields and sweeps any known rendition
// keys present on the record into the Renditions map.
func (a *Asset) UnmarshalJSON(data []byte) error {
	type plain Asset
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Asset(p)
	for _, key := range renditionKeys {
		val, ok := raw[key]
		if !ok {
			continue
		}
		var url string
		if err := json.Unmarshal(val, &url); err != nil || url == "" {
			continue
		}
		if a.Renditions == nil {
			a.Renditions = make(map[string]string)
		}
		a.Renditions[key] = url
	}
	return nil
}

// MarshalJSON emits renditions back as flat keys alongside the fixed
// fields, mirroring the wire shape.
func (a Asset) MarshalJSON() ([]byte, error) {
	type plain Asset
	data, err := json.Marshal(plain(a))
	if err != nil {
		return nil, err
	}
	if len(a.Renditions) == 0 {
		return data, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	for name, url := range a.Renditions {
		m[name] = url
	}
	return json.Marshal(m)
}

// CreateRequest is the typed payload for creating a child asset.
// Filesize and Filetype apply to files only.
type CreateRequest struct {
	Type     Kind   `json:"type"`
	Name     string `json:"name"`
	Filesize int64  `json:"filesize,omitempty"`
	Filetype string `json:"filetype,omitempty"`
}

// Validate checks that the request carries everything the service
// requires before it is sent.
func (r CreateRequest) Validate() error {
	if r.Name == "" || r.Type == "" {
		return fmt.Errorf("%w: type=%q name=%q", ErrMissingPayload, r.Type, r.Name)
	}
	if r.Type != KindFile && r.Type != KindFolder {
		return fmt.Errorf("%w: unsupported type %q", ErrMissingPayload, r.Type)
	}
	return nil
}
