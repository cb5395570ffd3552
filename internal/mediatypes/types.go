package mediatypes

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

// FileType represents the type of a file or media entry.
type FileType string

const (
	// FileTypeImage represents a still image.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video clip or animation.
	FileTypeVideo FileType = "video"
	// FileTypeModel represents an asset file that previews are generated for.
	FileTypeModel FileType = "model"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".webm": true,
	".mkv":  true,
	".mov":  true,
	".avi":  true,
	".m4v":  true,
}

// ModelExtensions maps file extensions to whether they are asset files.
var ModelExtensions = map[string]bool{
	".safetensors": true,
	".ckpt":        true,
	".pt":          true,
	".pth":         true,
	".bin":         true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".m4v":  "video/x-m4v",
}

// GetFileType returns the FileType for a lowercase extension with its
// leading dot (e.g. ".jpg").
func GetFileType(ext string) FileType {
	switch {
	case ImageExtensions[ext]:
		return FileTypeImage
	case VideoExtensions[ext]:
		return FileTypeVideo
	case ModelExtensions[ext]:
		return FileTypeModel
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a lowercase extension, or
// "application/octet-stream" if unknown.
func GetMimeType(ext string) string {
	if m, ok := MimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// IsModelFile reports whether ext is an asset file extension.
func IsModelFile(ext string) bool {
	return ModelExtensions[ext]
}

// FromURL classifies a remote media URL by the extension of its path.
// Query strings and fragments are ignored.
func FromURL(raw string) FileType {
	u, err := url.Parse(raw)
	if err != nil {
		return FileTypeOther
	}
	t := GetFileType(strings.ToLower(path.Ext(u.Path)))
	if t == FileTypeModel {
		return FileTypeOther
	}
	return t
}

// FromContentType classifies a MIME type such as an HTTP Content-Type header.
func FromContentType(ct string) FileType {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return FileTypeOther
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mediaType, "video/"):
		return FileTypeVideo
	}
	return FileTypeOther
}
