package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/storage"
	"go.uber.org/zap"
)

// UploadRoutes sets up image upload for listing photos.
func (h *Handler) UploadRoutes(router *gin.Engine) {
	router.POST("/uploads/images", h.requireAuth(), h.UploadImage())
}

// UploadImage stores a multipart "file" field and returns its public URL.
func (h *Handler) UploadImage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Images == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image storage is not configured"})
			return
		}
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		header, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A file field is required"})
			return
		}
		if header.Size > storage.MaxImageSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": storage.ErrImageTooLarge.Error()})
			return
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read upload"})
			return
		}
		defer file.Close()

		img, err := storage.ReadImage(file)
		if errors.Is(err, storage.ErrNotImage) || errors.Is(err, storage.ErrImageTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			h.respondError(c, "upload", err)
			return
		}

		url, err := h.Images.Upload(c.Request.Context(), img)
		if err != nil {
			h.respondError(c, "upload", err)
			return
		}

		h.Log.Info("image uploaded", zap.String("user_id", userID.String()), zap.String("object", img.ObjectName))
		c.JSON(http.StatusCreated, gin.H{"url": url})
	}
}
