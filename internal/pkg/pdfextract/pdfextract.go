package pdfextract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
)

// ExtractText extracts the embedded plain text from a PDF payload. Scanned
// documents have none, so an empty result with nil error is normal.
func ExtractText(b []byte) (string, error) {
	r, err := reader(b)
	if err != nil {
		return "", err
	}
	plainReader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// CountPages returns the page count of a PDF payload.
func CountPages(b []byte) (int, error) {
	r, err := reader(b)
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func reader(b []byte) (*pdf.Reader, error) {
	return pdf.NewReader(bytes.NewReader(b), int64(len(b)))
}
