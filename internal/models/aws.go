package models

// UploadInput describes a client-initiated source upload for which the
// ingest API mints a presigned PUT URL.
type UploadInput struct {
	Name       string `json:"name" validate:"required,lte=255"`
	Size       int64  `json:"size" validate:"required"`
	MimeType   string `json:"mime_type" validate:"required"`
	BucketName string `json:"-"`
	Key        string `json:"-"`
}
