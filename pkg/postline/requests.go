package postline

import "io"

// Attachment is one binary media item submitted with a create request. Data
// is consumed exactly once during upload.
type Attachment struct {
	FileName    string
	ContentType string
	Data        io.Reader
}

// CreatePostRequest contains parameters for creating a post. Tags may be
// empty and may contain duplicates; duplicates resolve to the same
// identifier. At least one attachment is required.
type CreatePostRequest struct {
	Title       string
	Desc        string
	Tags        []string
	Attachments []Attachment
}
