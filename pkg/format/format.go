// Package format classifies volume files by name.
// Classification is plain substring containment: a marker anywhere in the
// name counts, so "brain.nii.gz" and "scan.nii.bak" are both NIfTI.
package format

import (
	"fmt"
	"strings"
)

// HeaderType identifies the header layout of a volume file
type HeaderType int

const (
	HeaderUnknown HeaderType = iota
	HeaderNIfTI
)

// String returns the human-readable name of a header type.
func (t HeaderType) String() string {
	switch t {
	case HeaderUnknown:
		return "unknown"
	case HeaderNIfTI:
		return "nifti"
	default:
		return fmt.Sprintf("HeaderType(%d)", int(t))
	}
}

// Compression identifies the container compression of a volume file
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of a compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

const (
	niftiMarker = ".nii"
	gzipMarker  = ".gz"
	zstdMarker  = ".zst"
	lz4Marker   = ".lz4"
)

// ClassifyHeaderType returns the header type named by filename
func ClassifyHeaderType(name string) HeaderType {
	if strings.Contains(name, niftiMarker) {
		return HeaderNIfTI
	}
	return HeaderUnknown
}

// CompressionFor returns the compression named by filename.
// Gzip wins when several markers are present.
func CompressionFor(name string) Compression {
	switch {
	case strings.Contains(name, gzipMarker):
		return CompressionGzip
	case strings.Contains(name, zstdMarker):
		return CompressionZstd
	case strings.Contains(name, lz4Marker):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// IsCompressedName reports whether filename carries any compression marker
func IsCompressedName(name string) bool {
	return CompressionFor(name) != CompressionNone
}

// NameFromURL returns everything after the last "/" in rawURL.
// No URL parsing is done; a malformed URL still yields a name.
func NameFromURL(rawURL string) string {
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}
