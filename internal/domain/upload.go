package domain

import "strings"

// localRefPrefix marks an input value that references an image on the local
// filesystem rather than a backend-native asset.
const localRefPrefix = "local://"

// UploadDescriptor is the backend-assigned reference to a previously uploaded
// image asset. It replaces a local reference in a run request.
type UploadDescriptor struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder,omitempty"`
	Type      string `json:"type,omitempty"`
}

// IsLocalRef reports whether the raw value carries the local reference marker.
func IsLocalRef(value string) bool {
	return strings.HasPrefix(value, localRefPrefix)
}

// LocalPath strips the local reference marker and returns the filesystem path.
// Returns the value unchanged if it carries no marker.
func LocalPath(value string) string {
	return strings.TrimPrefix(value, localRefPrefix)
}

// LocalRef builds a local reference value for a filesystem path.
func LocalRef(path string) string {
	return localRefPrefix + path
}
