package models

import "time"

// UploadEvent identifies one finalized storage object. It is produced once
// per physical upload by the storage notification and carried through the
// queue unchanged.
type UploadEvent struct {
	Bucket      string    `json:"bucket" redis:"bucket" validate:"required"`
	ObjectKey   string    `json:"name" redis:"name" validate:"required"`
	ContentType string    `json:"contentType" redis:"contentType" validate:"required"`
	Size        int64     `json:"size" redis:"size" validate:"omitempty"`
	Generation  string    `json:"generation" redis:"generation" validate:"omitempty"`
	ReceivedAt  time.Time `json:"received_at" redis:"received_at" validate:"omitempty"`
}
