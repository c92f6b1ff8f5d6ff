// Package netx builds HTTP request bodies for file uploads.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
)

// MultipartFile encodes data as a single form file under field.
// It returns the body and the Content-Type header to send with it.
func MultipartFile(field, filename string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// NewUploadRequest builds a POST request carrying data as a multipart file.
func NewUploadRequest(ctx context.Context, url, field, filename string, data []byte) (*http.Request, error) {
	body, contentType, err := MultipartFile(field, filename, data)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}
