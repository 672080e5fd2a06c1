package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// MediaPrefix is the object-key namespace for chat images.
const MediaPrefix = "media"

// MediaStore turns uploaded chat images into stored objects addressed by
// opaque references. A reference is "media/{uuid}.jpg"; messages carry the
// reference, never a URL.
type MediaStore struct {
	s3   *S3Storage
	opts ImageProcessOptions
}

func NewMediaStore(s3 *S3Storage) *MediaStore {
	return &MediaStore{s3: s3, opts: DefaultChatImageOptions()}
}

// StoreBase64 decodes a base64 image payload (with or without a data-URI
// header), normalizes it to JPEG, and uploads it. Returns the media
// reference to embed in the message.
func (m *MediaStore) StoreBase64(ctx context.Context, payload string) (string, error) {
	if i := strings.IndexByte(payload, ','); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidImage
	}

	processed, contentType, size, err := ProcessChatImage(bytes.NewReader(raw), m.opts)
	if err != nil {
		return "", err
	}

	ref := MediaPrefix + "/" + uuid.NewString() + ".jpg"
	if _, err := m.s3.PutObject(ctx, ref, bytes.NewReader(processed), size, contentType); err != nil {
		return "", err
	}
	return ref, nil
}

// Open resolves a media reference to its object stream. The reference is
// validated against traversal before hitting the bucket.
func (m *MediaStore) Open(ctx context.Context, ref string) (*minio.Object, ObjectStat, error) {
	if !strings.HasPrefix(ref, MediaPrefix+"/") {
		return nil, ObjectStat{}, ErrInvalidImage
	}
	key, err := SafeJoinMediaPath("", ref)
	if err != nil {
		return nil, ObjectStat{}, err
	}
	return m.s3.GetObject(ctx, key)
}
