// Package models contains data structures used across handlers
package models

// ObjectInfo is one row of the file listing
type ObjectInfo struct {
	Key           string
	DisplayName   string
	Size          int64
	FormattedSize string
	LastModified  string
	ContentType   string
}

// Flash is a one-shot notice shown above the listing
type Flash struct {
	Level   string
	Message string
}

// Flash levels
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Conflict describes an upload waiting for the overwrite decision
type Conflict struct {
	FileName string
	Size     string
}
