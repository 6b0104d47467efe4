package models

import "encoding/json"

// Document is one stored content entry.
type Document struct {
	Section string          `json:"section"`
	Key     string          `json:"key"`
	Content json.RawMessage `json:"content"`
}

// UploadMediaRequest carries a base64 payload. Key is optional; one is
// generated from the filename when empty.
type UploadMediaRequest struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType" validate:"required"`
	Data     string `json:"data" validate:"required,base64"`
}

type MediaObject struct {
	Key      string `json:"key"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}
