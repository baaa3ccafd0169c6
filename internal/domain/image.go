package domain

import "time"

// ImageMeta carries arbitrary metadata captured at upload time.
type ImageMeta struct {
	Filename  string `json:"filename,omitempty"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// Image is one uploaded source asset. Key is the content identifier of the
// original in the artifact store. Images are created once per upload and
// immutable thereafter.
type Image struct {
	ID        string
	DatasetID string
	Key       string
	Meta      ImageMeta
	CreatedAt time.Time
}
