package routes

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/models"
	"github.com/sidhant-sriv/looply-api/search"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SwipeRoutes sets up the discovery stack routes.
func (h *Handler) SwipeRoutes(router *gin.Engine) {
	swipes := router.Group("/swipes", h.requireAuth())
	{
		swipes.GET("/deck", h.GetDeck())
		swipes.GET("", h.GetSwipes())
		swipes.POST("", h.CreateSwipe())
		swipes.DELETE("", h.ResetSwipes())
		swipes.GET("/liked", h.GetLikedItems())
		swipes.POST("/:listing_id/toggle-like", h.ToggleLike())
	}
	router.GET("/liked", h.requireAuth(), h.GetLikedItems())
}

// GetDeck returns the next listings to swipe on: available, not the caller's
// and not swiped yet.
func (h *Handler) GetDeck() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if err != nil || limit < 1 || limit > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter (must be 1-100)"})
			return
		}

		values := c.Request.URL.Query()
		values.Del("status")
		values.Del("page")
		values.Del("page_size")
		filters, err := search.Parse(values)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		query := func() *gorm.DB {
			return filters.Apply(h.db(c).Model(&models.Listing{})).
				Where("user_id <> ?", userID).
				Where("id NOT IN (SELECT listing_id FROM swipes WHERE user_id = ?)", userID)
		}

		listings := []models.Listing{}
		var remaining int64
		if filters.NeedsDistance() {
			if err := query().Preload("Owner").Find(&listings).Error; err != nil {
				h.respondError(c, "deck", err)
				return
			}
			listings = filters.Within(listings)
			remaining = int64(len(listings))
			if len(listings) > limit {
				listings = listings[:limit]
			}
		} else {
			if err := query().Count(&remaining).Error; err != nil {
				h.respondError(c, "deck", err)
				return
			}
			if err := query().Preload("Owner").Limit(limit).Find(&listings).Error; err != nil {
				h.respondError(c, "deck", err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"items": listings, "remaining": remaining})
	}
}

// GetSwipes lists the caller's swipes, newest first.
func (h *Handler) GetSwipes() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		swipes := []models.Swipe{}
		if err := h.db(c).Where("user_id = ?", userID).Order("created_at DESC").Find(&swipes).Error; err != nil {
			h.respondError(c, "swipes", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"swipes": swipes})
	}
}

// swipeTarget loads a listing the caller may swipe on.
func swipeTarget(tx *gorm.DB, userID, listingID uuid.UUID) error {
	var listing models.Listing
	if err := tx.Select("id", "user_id").First(&listing, "id = ?", listingID).Error; err != nil {
		return err
	}
	if listing.UserID == userID {
		return newHTTPError(http.StatusBadRequest, "You cannot swipe on your own listing")
	}
	return nil
}

// upsertSwipe stores action for the pair, replacing an earlier swipe.
func upsertSwipe(tx *gorm.DB, userID, listingID uuid.UUID, action models.SwipeAction) (models.Swipe, error) {
	swipe := models.Swipe{UserID: userID, ListingID: listingID, Action: action, CreatedAt: time.Now().UTC()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "listing_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"action", "created_at"}),
	}).Create(&swipe).Error
	if err != nil {
		return swipe, err
	}
	// swipe still carries the id generated for the insert, which a
	// conflicting row does not have.
	var stored models.Swipe
	err = tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&stored).Error
	return stored, err
}

// CreateSwipe records a like or pass. Passing is stored as reject.
func (h *Handler) CreateSwipe() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			ListingID uuid.UUID `json:"listing_id" binding:"required"`
			Action    string    `json:"action" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		action, valid := models.ParseSwipeAction(req.Action)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be like, pass or reject"})
			return
		}

		var swipe models.Swipe
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := swipeTarget(tx, userID, req.ListingID); err != nil {
				return err
			}
			var err error
			swipe, err = upsertSwipe(tx, userID, req.ListingID, action)
			return err
		})
		if err != nil {
			h.respondError(c, "Item", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"swipe": swipe})
	}
}

// GetLikedItems lists the listings the caller liked, most recent like first.
func (h *Handler) GetLikedItems() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		listings := []models.Listing{}
		err := h.db(c).
			Joins("JOIN swipes ON swipes.listing_id = listings.id").
			Where("swipes.user_id = ? AND swipes.action = ?", userID, models.SwipeLike).
			Order("swipes.created_at DESC").
			Preload("Owner").
			Find(&listings).Error
		if err != nil {
			h.respondError(c, "items", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": listings})
	}
}

// ToggleLike flips the caller's like on a listing: a liked listing is
// unliked, anything else becomes liked.
func (h *Handler) ToggleLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := paramID(c, "listing_id")
		if !ok {
			return
		}

		liked := false
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := swipeTarget(tx, userID, listingID); err != nil {
				return err
			}

			var existing models.Swipe
			err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&existing).Error
			switch {
			case err == nil && existing.Action == models.SwipeLike:
				return tx.Delete(&existing).Error
			case err == nil || errors.Is(err, gorm.ErrRecordNotFound):
				liked = true
				_, err = upsertSwipe(tx, userID, listingID, models.SwipeLike)
				return err
			default:
				return err
			}
		})
		if err != nil {
			h.respondError(c, "Item", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"listing_id": listingID, "liked": liked})
	}
}

// ResetSwipes clears the caller's swipe history so the deck starts over.
func (h *Handler) ResetSwipes() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		result := h.db(c).Where("user_id = ?", userID).Delete(&models.Swipe{})
		if result.Error != nil {
			h.respondError(c, "swipes", result.Error)
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": result.RowsAffected})
	}
}
