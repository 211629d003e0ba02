package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRoutes sets up saved item routes.
func (h *Handler) FavoriteRoutes(router *gin.Engine) {
	favorites := router.Group("/favorites", h.requireAuth())
	{
		favorites.GET("", h.GetFavorites())
		favorites.GET("/items", h.GetFavoriteItems())
		favorites.POST("/:listing_id", h.AddFavorite())
		favorites.DELETE("/:listing_id", h.RemoveFavorite())
		favorites.POST("/:listing_id/toggle", h.ToggleFavorite())
	}
	router.GET("/saved-items", h.requireAuth(), h.GetFavoriteItems())
}

// GetFavorites returns the ids of the caller's saved listings.
func (h *Handler) GetFavorites() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ids := []uuid.UUID{}
		err := h.db(c).Model(&models.Favorite{}).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Pluck("listing_id", &ids).Error
		if err != nil {
			h.respondError(c, "favorites", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"favorites": ids})
	}
}

// GetFavoriteItems returns the caller's saved listings with their owners.
func (h *Handler) GetFavoriteItems() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		listings := []models.Listing{}
		err := h.db(c).
			Joins("JOIN favorites ON favorites.listing_id = listings.id").
			Where("favorites.user_id = ?", userID).
			Order("favorites.created_at DESC").
			Preload("Owner").
			Find(&listings).Error
		if err != nil {
			h.respondError(c, "favorites", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": listings})
	}
}

func addFavorite(tx *gorm.DB, userID, listingID uuid.UUID) error {
	if err := tx.Select("id").First(&models.Listing{}, "id = ?", listingID).Error; err != nil {
		return err
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Favorite{UserID: userID, ListingID: listingID}).Error
}

// AddFavorite saves a listing. Saving twice is a no-op.
func (h *Handler) AddFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := paramID(c, "listing_id")
		if !ok {
			return
		}

		if err := addFavorite(h.db(c), userID, listingID); err != nil {
			h.respondError(c, "Item", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"listing_id": listingID, "favorited": true})
	}
}

// RemoveFavorite unsaves a listing.
func (h *Handler) RemoveFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := paramID(c, "listing_id")
		if !ok {
			return
		}

		err := h.db(c).Where("user_id = ? AND listing_id = ?", userID, listingID).Delete(&models.Favorite{}).Error
		if err != nil {
			h.respondError(c, "favorite", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"listing_id": listingID, "favorited": false})
	}
}

// ToggleFavorite saves an unsaved listing and unsaves a saved one.
func (h *Handler) ToggleFavorite() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		listingID, ok := paramID(c, "listing_id")
		if !ok {
			return
		}

		favorited := false
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			var existing models.Favorite
			err := tx.Where("user_id = ? AND listing_id = ?", userID, listingID).First(&existing).Error
			if err == nil {
				return tx.Delete(&existing).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			favorited = true
			return addFavorite(tx, userID, listingID)
		})
		if err != nil {
			h.respondError(c, "Item", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"listing_id": listingID, "favorited": favorited})
	}
}
