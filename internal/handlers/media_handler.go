package handlers

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/punchking466/workchat-backend-v2/internal/httpx"
	"github.com/punchking466/workchat-backend-v2/internal/storage"
	"github.com/rs/zerolog"
)

type MediaHandler struct {
	media  *storage.MediaStore
	logger zerolog.Logger
}

func NewMediaHandler(media *storage.MediaStore, logger zerolog.Logger) *MediaHandler {
	return &MediaHandler{media: media, logger: logger}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// Get streams a stored chat image by its media reference. References are
// immutable, so responses cache aggressively.
func (h *MediaHandler) Get(c *fiber.Ctx) error {
	if h.media == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	ref := storage.MediaPrefix + "/" + strings.TrimSpace(c.Params("*"))
	obj, st, err := h.media.Open(c.Context(), ref)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		if errors.Is(err, storage.ErrInvalidImage) {
			return httpx.NotFound(c, "not_found", "Not found")
		}
		h.logger.Error().Err(err).Str("ref", ref).Msg("media fetch")
		return httpx.Internal(c, "media_fetch_failed")
	}

	etag := st.ETag
	if etag != "" {
		c.Set("ETag", "\""+etag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(etag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}
	if !st.LastModified.IsZero() {
		c.Set("Last-Modified", st.LastModified.UTC().Format(time.RFC1123))
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	if st.ContentType != "" {
		c.Set(fiber.HeaderContentType, st.ContentType)
	} else {
		c.Set(fiber.HeaderContentType, "image/jpeg")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	// Stream through fasthttp's writer so large objects never buffer whole.
	logger := h.logger
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()

		n, copyErr := io.Copy(w, obj)
		if flushErr := w.Flush(); copyErr == nil {
			copyErr = flushErr
		}
		if copyErr != nil {
			logger.Warn().Err(copyErr).Str("ref", ref).Int64("copied", n).Msg("media stream")
		}
	})
	return nil
}
