package routes

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/auth"
	"github.com/sidhant-sriv/looply-api/cache"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/middleware"
	"github.com/sidhant-sriv/looply-api/models"
	"github.com/sidhant-sriv/looply-api/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const feedPrefix = "feed:"

// Handler carries the dependencies shared by every route.
type Handler struct {
	DB     *gorm.DB
	Cache  cache.Store
	Events events.Publisher
	// Images is nil when object storage is not configured.
	Images      storage.ImageStore
	Tokens      *auth.TokenService
	Log         *zap.Logger
	FeedTTL     time.Duration
	AuthLimiter *middleware.RateLimiter
}

// Mount registers every route group on the router.
func (h *Handler) Mount(router *gin.Engine) {
	registerValidators()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.AuthRoutes(router)
	h.UserRoutes(router)
	h.ItemRoutes(router)
	h.SwipeRoutes(router)
	h.FavoriteRoutes(router)
	h.MatchRoutes(router)
	h.ClaimRoutes(router)
	h.DriveRoutes(router)
	h.DonationRoutes(router)
	h.ForumRoutes(router)
	h.ThreadRoutes(router)
	h.UploadRoutes(router)
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return middleware.AuthMiddleware(h.Tokens)
}

func (h *Handler) db(c *gin.Context) *gorm.DB {
	return h.DB.WithContext(c.Request.Context())
}

// httpError aborts a transaction with a specific response.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func newHTTPError(status int, message string) error {
	return &httpError{status: status, message: message}
}

// respondError maps domain and store errors to a response. what names the
// resource for not-found and failure messages.
func (h *Handler) respondError(c *gin.Context, what string, err error) {
	var he *httpError
	switch {
	case errors.As(err, &he):
		c.JSON(he.status, gin.H{"error": he.message})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": what + " already exists"})
	default:
		_ = c.Error(err)
		h.Log.Error("request failed", zap.String("resource", what), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process " + what})
	}
}

// currentUser returns the authenticated caller or answers 401.
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
	}
	return id, ok
}

// paramID parses a uuid path parameter or answers 400.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return uuid.Nil, false
	}
	return id, true
}

type page struct {
	Page     int
	PageSize int
}

func (p page) offset() int { return (p.Page - 1) * p.PageSize }

func (p page) totalPages(total int64) int64 {
	return (total + int64(p.PageSize) - 1) / int64(p.PageSize)
}

// pagination reads page and page_size query parameters.
func pagination(c *gin.Context) (page, bool) {
	p, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || p < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page parameter"})
		return page{}, false
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || size < 1 || size > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page_size parameter (must be 1-100)"})
		return page{}, false
	}
	return page{Page: p, PageSize: size}, true
}

// publish sends an event and only logs failures.
func (h *Handler) publish(ctx context.Context, eventType string, actor, subject uuid.UUID, attrs map[string]string) {
	if err := h.Events.Publish(ctx, events.New(eventType, actor, subject, attrs)); err != nil {
		h.Log.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (h *Handler) invalidateFeed(ctx context.Context) {
	if err := h.Cache.DeletePrefix(ctx, feedPrefix); err != nil {
		h.Log.Warn("failed to invalidate feed cache", zap.Error(err))
	}
}

// deleteImages removes listing images from object storage. Failures are
// logged; the listing change has already been committed.
func (h *Handler) deleteImages(ctx context.Context, urls []string) {
	if h.Images == nil {
		return
	}
	for _, url := range urls {
		if err := h.Images.Delete(ctx, url); err != nil {
			h.Log.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
		}
	}
}
