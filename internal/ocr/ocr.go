// Package ocr extracts text from scanned page images through a remote
// vision-language model.
package ocr

import "context"

// FailureMarker is the text stored for a page whose image the model could
// not read. It is part of the data contract: clients and librarians search
// for this exact string to find pages needing manual transcription.
const FailureMarker = "(OCR failed or unreadable image)"

// TextExtractor is the capability the ingestion pipeline needs from an OCR
// provider.
//
// A FailureMarker result with a nil error means the provider answered but
// could not read the image. Errors are reserved for transport and auth
// failures where no recognition was attempted.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}
