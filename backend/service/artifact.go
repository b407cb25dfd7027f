package service

import (
	"context"
	"fmt"
	"time"
)

const (
	ContentTypePNG = "image/png"
	ContentTypePDF = "application/pdf"
)

// ArtifactStorage holds signature images and finalized PDFs by key.
type ArtifactStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// SignatureKey builds the object key for a party's signature image.
func SignatureKey(workspaceID, contractID, partyID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/signatures/%s-%d.png", workspaceID, contractID, partyID, at.UnixNano())
}

// PDFKey builds the object key for a finalized contract document.
func PDFKey(workspaceID, contractID string, at time.Time) string {
	return fmt.Sprintf("%s/%s/pdf/%d.pdf", workspaceID, contractID, at.UnixNano())
}
