package models

import "time"

type DocumentType string

const (
	DocumentTypeID             DocumentType = "id"
	DocumentTypePassport       DocumentType = "passport"
	DocumentTypeDrivingLicense DocumentType = "driving_license"
	DocumentTypePhoto          DocumentType = "photo"
	DocumentTypeMedical        DocumentType = "medical"
	DocumentTypeAgreement      DocumentType = "agreement"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeID, DocumentTypePassport, DocumentTypeDrivingLicense,
		DocumentTypePhoto, DocumentTypeMedical, DocumentTypeAgreement:
		return true
	}
	return false
}

// IsVerification reports whether at most one document of this type may
// exist per user.
func (t DocumentType) IsVerification() bool {
	switch t {
	case DocumentTypeID, DocumentTypePassport, DocumentTypeDrivingLicense, DocumentTypePhoto:
		return true
	}
	return false
}

type FileType string

const (
	FileTypeJPG  FileType = "jpg"
	FileTypeJPEG FileType = "jpeg"
	FileTypePNG  FileType = "png"
	FileTypePDF  FileType = "pdf"
	FileTypeDOC  FileType = "doc"
	FileTypeDOCX FileType = "docx"
)

func (f FileType) Valid() bool {
	switch f {
	case FileTypeJPG, FileTypeJPEG, FileTypePNG, FileTypePDF, FileTypeDOC, FileTypeDOCX:
		return true
	}
	return false
}

// Viewable reports whether the file can be rendered through a signed URL.
func (f FileType) Viewable() bool {
	switch f {
	case FileTypePDF, FileTypeJPG, FileTypeJPEG, FileTypePNG:
		return true
	}
	return false
}

// Document describes an uploaded file. The bytes live in the blob store
// under StorageKey.
type Document struct {
	ID           string       `json:"id"`
	UserID       string       `json:"userId"`
	Name         string       `json:"name"`
	DocumentType DocumentType `json:"documentType"`
	FileType     FileType     `json:"fileType"`
	StorageKey   string       `json:"-"`
	Size         int64        `json:"size"`
	CreatedAt    time.Time    `json:"createdAt"`
	SharedWith   []*Share     `json:"sharedWith,omitempty"`
}
