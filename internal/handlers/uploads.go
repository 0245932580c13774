package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// storeUpload streams an uploaded part to the media store under a fresh key
// and returns the stable location.
func storeUpload(ctx context.Context, store MediaStorage, prefix string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)
	return store.Save(ctx, key, file)
}

// spoolToTemp copies an uploaded part to a local temp file so external tools
// (ffprobe) can read it. The returned cleanup must run on success and failure
// paths alike.
func spoolToTemp(file io.Reader, filename string) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tmp, err := os.CreateTemp("", "videotube-upload-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}

	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }
	return path, cleanup, nil
}
