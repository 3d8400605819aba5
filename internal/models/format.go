package models

import "strings"

// Format is a target encoding. The set is closed; use ParseImageFormat for client input.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatPDF  Format = "pdf"
)

// DefaultImageFormat is used when the declared image format is missing or unknown.
const DefaultImageFormat = FormatJPEG

var imageFormats = map[string]Format{
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"png":  FormatPNG,
	"webp": FormatWebP,
}

// ParseImageFormat maps a declared format to a supported image format.
// Unknown values fall back to DefaultImageFormat and report ok=false.
func ParseImageFormat(s string) (Format, bool) {
	if f, ok := imageFormats[strings.ToLower(strings.TrimSpace(s))]; ok {
		return f, true
	}
	return DefaultImageFormat, false
}

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	case FormatPDF:
		return ".pdf"
	}
	return ""
}

func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatPDF:
		return ContentTypePDF
	}
	return "application/octet-stream"
}

func (f Format) IsImage() bool {
	return f == FormatJPEG || f == FormatPNG || f == FormatWebP
}
