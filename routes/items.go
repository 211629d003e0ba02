package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/cache"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/models"
	"github.com/sidhant-sriv/looply-api/search"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ItemRoutes sets up the routes for listing operations. Browsing is public,
// everything else requires a token.
func (h *Handler) ItemRoutes(router *gin.Engine) {
	items := router.Group("/items")
	items.GET("", h.GetItems())
	items.GET("/:item_id", h.GetItem())

	authed := items.Group("", h.requireAuth())
	{
		authed.GET("/mine", h.GetMyItems())
		authed.POST("", h.CreateItem())
		authed.PUT("/:item_id", h.UpdateItem())
		authed.PATCH("/:item_id/status", h.UpdateItemStatus())
		authed.DELETE("/:item_id", h.DeleteItem())
	}
	router.GET("/my-listings", h.requireAuth(), h.GetMyItems())
}

type itemRequest struct {
	Title       string           `json:"title" binding:"required,min=3,max=100,notblank"`
	Description string           `json:"description" binding:"required,min=10"`
	Category    string           `json:"category" binding:"required,notblank"`
	Condition   models.Condition `json:"condition" binding:"required,oneof=new excellent good fair poor"`
	Mode        models.Mode      `json:"mode" binding:"required,oneof=gift barter sell buy"`
	Price       *float64         `json:"price" binding:"omitempty,min=0"`
	Tags        []string         `json:"tags" binding:"required,min=1,tagset"`
	DesiredTags []string         `json:"desired_tags" binding:"omitempty,tagset"`
	DesiredText string           `json:"desired_text" binding:"max=500"`
	Location    locationInput    `json:"location" binding:"required"`
	Images      []string         `json:"images" binding:"required,min=1,max=10,dive,required"`
}

type itemUpdateRequest struct {
	Title       *string           `json:"title" binding:"omitempty,min=3,max=100,notblank"`
	Description *string           `json:"description" binding:"omitempty,min=10"`
	Category    *string           `json:"category" binding:"omitempty,notblank"`
	Condition   *models.Condition `json:"condition" binding:"omitempty,oneof=new excellent good fair poor"`
	Mode        *models.Mode      `json:"mode" binding:"omitempty,oneof=gift barter sell buy"`
	Price       *float64          `json:"price" binding:"omitempty,min=0"`
	Tags        []string          `json:"tags" binding:"omitempty,min=1,tagset"`
	DesiredTags []string          `json:"desired_tags" binding:"omitempty,tagset"`
	DesiredText *string           `json:"desired_text" binding:"omitempty,max=500"`
	Location    *locationInput    `json:"location"`
	Images      []string          `json:"images" binding:"omitempty,min=1,max=10,dive,required"`
}

// GetItems searches available listings. Responses are cached per filter set
// until the next listing mutation or the feed TTL.
func (h *Handler) GetItems() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters, err := search.Parse(c.Request.URL.Query())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		key := filters.CacheKey()
		if body, err := h.Cache.Get(ctx, key); err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			h.Log.Warn("feed cache read failed", zap.Error(err))
		}

		listings, total, err := h.searchListings(c, filters)
		if err != nil {
			h.respondError(c, "items", err)
			return
		}

		body, err := json.Marshal(gin.H{
			"items":       listings,
			"total":       total,
			"page":        filters.Page,
			"page_size":   filters.PageSize,
			"total_pages": filters.TotalPages(total),
		})
		if err != nil {
			h.respondError(c, "items", err)
			return
		}
		if err := h.Cache.Set(ctx, key, body, h.FeedTTL); err != nil {
			h.Log.Warn("feed cache write failed", zap.Error(err))
		}

		c.Header("X-Cache", "MISS")
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

func (h *Handler) searchListings(c *gin.Context, filters search.Filters) ([]models.Listing, int64, error) {
	query := func() *gorm.DB {
		return filters.Apply(h.db(c).Model(&models.Listing{}))
	}

	listings := []models.Listing{}
	if filters.NeedsDistance() {
		if err := query().Preload("Owner").Find(&listings).Error; err != nil {
			return nil, 0, err
		}
		listings = filters.Within(listings)
		return filters.Paginate(listings), int64(len(listings)), nil
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query().Preload("Owner").
		Offset(filters.Offset()).
		Limit(filters.PageSize).
		Find(&listings).Error
	return listings, total, err
}

// GetItem retrieves a listing by ID with its owner and counts the view.
func (h *Handler) GetItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := paramID(c, "item_id")
		if !ok {
			return
		}

		var listing models.Listing
		if err := h.db(c).Preload("Owner").First(&listing, "id = ?", itemID).Error; err != nil {
			h.respondError(c, "Item", err)
			return
		}

		err := h.db(c).Model(&models.Listing{}).
			Where("id = ?", itemID).
			UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
		if err != nil {
			h.Log.Warn("failed to count view", zap.String("item_id", itemID.String()), zap.Error(err))
		} else {
			listing.Views++
		}

		c.JSON(http.StatusOK, gin.H{"item": listing})
	}
}

// GetMyItems lists the caller's listings in every status, newest first.
func (h *Handler) GetMyItems() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		listings := []models.Listing{}
		if err := h.db(c).Where("user_id = ?", userID).Order("created_at DESC").Find(&listings).Error; err != nil {
			h.respondError(c, "items", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": listings})
	}
}

// CreateItem handles the creation of a new listing.
func (h *Handler) CreateItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req itemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		listing := models.Listing{
			UserID:      userID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Images:      datatypes.JSONSlice[string](req.Images),
			Tags:        datatypes.JSONSlice[string](cleanTags(req.Tags)),
			Category:    strings.TrimSpace(req.Category),
			Condition:   req.Condition,
			Mode:        req.Mode,
			Price:       req.Price,
			DesiredTags: datatypes.JSONSlice[string](cleanTags(req.DesiredTags)),
			DesiredText: req.DesiredText,
			Location:    models.Location{Address: req.Location.Address, Lat: req.Location.Lat, Lng: req.Location.Lng},
		}
		if err := h.db(c).Create(&listing).Error; err != nil {
			h.respondError(c, "item", err)
			return
		}

		ctx := c.Request.Context()
		h.invalidateFeed(ctx)
		h.publish(ctx, events.ListingCreated, userID, listing.ID, map[string]string{
			"mode":     string(listing.Mode),
			"category": listing.Category,
		})

		c.JSON(http.StatusCreated, gin.H{"item": listing})
	}
}

// ownedListing loads a listing and checks the caller owns it.
func (h *Handler) ownedListing(c *gin.Context, action string) (models.Listing, bool) {
	var listing models.Listing

	userID, ok := currentUser(c)
	if !ok {
		return listing, false
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return listing, false
	}

	if err := h.db(c).First(&listing, "id = ?", itemID).Error; err != nil {
		h.respondError(c, "Item", err)
		return listing, false
	}
	if listing.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to " + action + " this item"})
		return listing, false
	}
	return listing, true
}

// UpdateItem applies a partial update to the caller's listing.
func (h *Handler) UpdateItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, ok := h.ownedListing(c, "update")
		if !ok {
			return
		}

		var req itemUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		// Only the edited columns are written so a concurrent claim or view
		// count is not overwritten by this stale copy.
		columns := []string{}
		if req.Title != nil {
			listing.Title = strings.TrimSpace(*req.Title)
			columns = append(columns, "title")
		}
		if req.Description != nil {
			listing.Description = *req.Description
			columns = append(columns, "description")
		}
		if req.Category != nil {
			listing.Category = strings.TrimSpace(*req.Category)
			columns = append(columns, "category")
		}
		if req.Condition != nil {
			listing.Condition = *req.Condition
			columns = append(columns, "condition")
		}
		if req.Mode != nil {
			listing.Mode = *req.Mode
			columns = append(columns, "mode")
		}
		if req.Price != nil {
			listing.Price = req.Price
			columns = append(columns, "price")
		}
		if req.Tags != nil {
			listing.Tags = cleanTags(req.Tags)
			listing.TagIndex = models.TagIndex(listing.Tags)
			columns = append(columns, "tags", "tag_index")
		}
		if req.DesiredTags != nil {
			listing.DesiredTags = cleanTags(req.DesiredTags)
			columns = append(columns, "desired_tags")
		}
		if req.DesiredText != nil {
			listing.DesiredText = *req.DesiredText
			columns = append(columns, "desired_text")
		}
		if req.Location != nil {
			listing.Location = models.Location{Address: req.Location.Address, Lat: req.Location.Lat, Lng: req.Location.Lng}
			columns = append(columns, "location_address", "location_lat", "location_lng")
		}
		var dropped []string
		if req.Images != nil {
			dropped = removedImages(listing.Images, req.Images)
			listing.Images = req.Images
			columns = append(columns, "images")
		}

		if len(columns) > 0 {
			err := h.db(c).Transaction(func(tx *gorm.DB) error {
				if err := tx.Model(&listing).Select(columns).Updates(&listing).Error; err != nil {
					return err
				}
				return tx.First(&listing, "id = ?", listing.ID).Error
			})
			if err != nil {
				h.respondError(c, "item", err)
				return
			}

			ctx := c.Request.Context()
			h.deleteImages(ctx, dropped)
			h.invalidateFeed(ctx)
			h.publish(ctx, events.ListingUpdated, listing.UserID, listing.ID, nil)
		}

		c.JSON(http.StatusOK, gin.H{"item": listing})
	}
}

// UpdateItemStatus lets the owner take a listing off the market and back.
func (h *Handler) UpdateItemStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, ok := h.ownedListing(c, "update")
		if !ok {
			return
		}

		var req struct {
			Status models.ListingStatus `json:"status" binding:"required,oneof=available claimed inactive"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !listing.Status.CanTransition(req.Status) {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot move a " + string(listing.Status) + " item to " + string(req.Status)})
			return
		}
		if listing.Status != req.Status {
			if err := h.db(c).Model(&listing).Update("status", req.Status).Error; err != nil {
				h.respondError(c, "item", err)
				return
			}
			listing.Status = req.Status

			ctx := c.Request.Context()
			h.invalidateFeed(ctx)
			h.publish(ctx, events.ListingUpdated, listing.UserID, listing.ID, map[string]string{"status": string(req.Status)})
		}

		c.JSON(http.StatusOK, gin.H{"item": listing})
	}
}

// DeleteItem hard-deletes the caller's listing and everything that points at it.
func (h *Handler) DeleteItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, ok := h.ownedListing(c, "delete")
		if !ok {
			return
		}

		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			return deleteListing(tx, listing.ID)
		})
		if err != nil {
			h.respondError(c, "item", err)
			return
		}

		ctx := c.Request.Context()
		h.deleteImages(ctx, listing.Images)
		h.invalidateFeed(ctx)
		h.publish(ctx, events.ListingDeleted, listing.UserID, listing.ID, nil)

		c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully"})
	}
}

// deleteListing removes dependent rows explicitly so the result does not
// depend on the dialect enforcing foreign key actions.
func deleteListing(tx *gorm.DB, id uuid.UUID) error {
	steps := []func() error{
		func() error { return tx.Where("listing_id = ?", id).Delete(&models.Swipe{}).Error },
		func() error { return tx.Where("listing_id = ?", id).Delete(&models.Favorite{}).Error },
		func() error { return tx.Where("listing_id = ?", id).Delete(&models.Claim{}).Error },
		func() error { return tx.Where("item_a_id = ? OR item_b_id = ?", id, id).Delete(&models.Match{}).Error },
		func() error {
			return tx.Model(&models.Donation{}).Where("item_id = ?", id).UpdateColumn("item_id", nil).Error
		},
		func() error {
			return tx.Model(&models.ChatThread{}).Where("listing_id = ?", id).UpdateColumn("listing_id", nil).Error
		},
		func() error { return tx.Delete(&models.Listing{}, "id = ?", id).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// removedImages returns the urls in before that are missing from after.
func removedImages(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, url := range after {
		keep[url] = true
	}
	var removed []string
	for _, url := range before {
		if !keep[url] {
			removed = append(removed, url)
		}
	}
	return removed
}
