package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/middleware"
	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
)

// ClaimRoutes sets up NGO claim routes. Listing owners see incoming claims.
func (h *Handler) ClaimRoutes(router *gin.Engine) {
	claims := router.Group("/claims", h.requireAuth())
	{
		claims.GET("", middleware.RequireRole(models.RoleNGO), h.GetClaims())
		claims.POST("", middleware.RequireRole(models.RoleNGO), h.CreateClaim())
		claims.GET("/incoming", h.GetIncomingClaims())
		claims.PATCH("/:claim_id", h.UpdateClaim())
	}
}

// GetClaims lists the calling NGO's claims with the claimed listing.
func (h *Handler) GetClaims() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		claims := []models.Claim{}
		err := h.db(c).Preload("Listing").Preload("Listing.Owner").
			Where("ngo_id = ?", userID).
			Order("claimed_at DESC").
			Find(&claims).Error
		if err != nil {
			h.respondError(c, "claims", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	}
}

// GetIncomingClaims lists claims NGOs made on the caller's listings.
func (h *Handler) GetIncomingClaims() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		claims := []models.Claim{}
		err := h.db(c).Preload("Listing").Preload("NGO").
			Joins("JOIN listings ON listings.id = claims.listing_id").
			Where("listings.user_id = ?", userID).
			Order("claims.claimed_at DESC").
			Find(&claims).Error
		if err != nil {
			h.respondError(c, "claims", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"claims": claims})
	}
}

// CreateClaim lets an NGO claim an available listing. The claim and the
// listing's move to claimed happen in one transaction.
func (h *Handler) CreateClaim() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			ListingID string `json:"listing_id" binding:"required,uuid"`
			Message   string `json:"message" binding:"max=500"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var claim models.Claim
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			var listing models.Listing
			if err := tx.First(&listing, "id = ?", req.ListingID).Error; err != nil {
				return err
			}
			if listing.UserID == userID {
				return newHTTPError(http.StatusBadRequest, "You cannot claim your own listing")
			}

			var existing int64
			if err := tx.Model(&models.Claim{}).Where("ngo_id = ? AND listing_id = ?", userID, listing.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return newHTTPError(http.StatusConflict, "You have already claimed this listing")
			}

			// Conditional update so two NGOs cannot both win the listing.
			result := tx.Model(&models.Listing{}).
				Where("id = ? AND status = ?", listing.ID, models.ListingAvailable).
				Update("status", models.ListingClaimed)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return newHTTPError(http.StatusConflict, "Listing is not available")
			}

			claim = models.Claim{NGOID: userID, ListingID: listing.ID, Message: req.Message}
			if err := tx.Create(&claim).Error; err != nil {
				return err
			}
			return tx.Preload("Listing").First(&claim, "id = ?", claim.ID).Error
		})
		if err != nil {
			h.respondError(c, "Listing", err)
			return
		}

		ctx := c.Request.Context()
		h.invalidateFeed(ctx)
		h.publish(ctx, events.ClaimCreated, userID, claim.ID, map[string]string{
			"listing_id": claim.ListingID.String(),
		})
		c.JSON(http.StatusCreated, gin.H{"claim": claim})
	}
}

// UpdateClaim moves a claim forward. Either the claiming NGO or the listing
// owner may update it; reaching received credits the owner's karma.
func (h *Handler) UpdateClaim() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		claimID, ok := paramID(c, "claim_id")
		if !ok {
			return
		}

		var req struct {
			Status models.ClaimStatus `json:"status" binding:"required,oneof=claimed pickup_arranged received"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var claim models.Claim
		changed := false
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Listing").First(&claim, "id = ?", claimID).Error; err != nil {
				return err
			}
			if claim.Listing == nil {
				return gorm.ErrRecordNotFound
			}
			if claim.NGOID != userID && claim.Listing.UserID != userID {
				return newHTTPError(http.StatusForbidden, "You do not have permission to update this claim")
			}
			if req.Status == claim.Status {
				return nil
			}
			if !claim.Status.CanTransition(req.Status) {
				return models.ErrInvalidTransition
			}

			if err := tx.Model(&models.Claim{}).Where("id = ?", claim.ID).Update("status", req.Status).Error; err != nil {
				return err
			}
			claim.Status = req.Status
			if req.Status == models.ClaimReceived {
				if err := models.AdjustKarma(tx, claim.Listing.UserID, models.KarmaClaimReceived); err != nil {
					return err
				}
			}
			changed = true
			return nil
		})
		if err != nil {
			h.respondError(c, "Claim", err)
			return
		}

		if changed {
			h.publish(c.Request.Context(), events.ClaimUpdated, userID, claim.ID, map[string]string{
				"status": string(claim.Status),
			})
		}
		c.JSON(http.StatusOK, gin.H{"claim": claim})
	}
}
