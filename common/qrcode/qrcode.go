package qrcode

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// Standard sizes in pixels.
const (
	SizeEmail = 300
	SizePDF   = 512
)

// PNG encodes text as a QR code with medium error correction.
func PNG(text string, size int) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("qr content is empty")
	}
	qr, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	pngBytes, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR to PNG: %w", err)
	}
	return pngBytes, nil
}

// DataURI returns the QR as "data:image/png;base64,..." for inline HTML.
func DataURI(text string, size int) (string, error) {
	pngBytes, err := PNG(text, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes), nil
}

// EntryPayload is what door staff scanners read: the member code alone.
// The code is validated server side, so nothing else is embedded.
func EntryPayload(memberCode string) string {
	return memberCode
}
