package models

// UsedSignature is a consumed authorization digest. Rows are permanent:
// once a digest is recorded it can never authorize a second mutation.
type UsedSignature struct {
	Base
	Digest string `gorm:"uniqueIndex;not null" json:"digest"`
}
