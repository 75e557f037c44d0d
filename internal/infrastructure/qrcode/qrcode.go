package qrcode

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Renderer builds image URLs for a hosted QR code generator.
type Renderer struct {
	BaseURL string
	Size    int
}

func NewRenderer(baseURL string, size int) *Renderer {
	if size <= 0 {
		size = 200
	}
	return &Renderer{BaseURL: baseURL, Size: size}
}

// URL encodes payload as JSON and returns a URL whose image carries it.
func (r *Renderer) URL(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal qr payload: %w", err)
	}

	sep := "?"
	if strings.Contains(r.BaseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%ssize=%dx%d&data=%s", r.BaseURL, sep, r.Size, r.Size, url.QueryEscape(string(data))), nil
}
