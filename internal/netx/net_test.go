package netx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploadRequest_RoundTripsThroughFormFile(t *testing.T) {
	var (
		gotName string
		gotBody []byte
		gotErr  error
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("avatar")
		if err != nil {
			gotErr = err
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotBody, _ = io.ReadAll(file)
	}))
	defer ts.Close()

	req, err := NewUploadRequest(context.Background(), ts.URL, "avatar", "me.png", []byte("pixels"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.NoError(t, gotErr)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "me.png", gotName)
	assert.Equal(t, []byte("pixels"), gotBody)
}

func TestMultipartFile_ContentType(t *testing.T) {
	body, ct, err := MultipartFile("avatar", "a.jpg", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, ct, "multipart/form-data; boundary=")
	assert.Contains(t, body.String(), `filename="a.jpg"`)
}

func TestNewUploadRequest_BadURL(t *testing.T) {
	_, err := NewUploadRequest(context.Background(), "://bad", "avatar", "a.png", nil)
	assert.Error(t, err)
}
