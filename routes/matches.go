package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
)

// MatchRoutes sets up swap offer routes.
func (h *Handler) MatchRoutes(router *gin.Engine) {
	matches := router.Group("/matches", h.requireAuth())
	{
		matches.GET("", h.GetMatches())
		matches.POST("", h.CreateMatch())
		matches.PATCH("/:match_id", h.UpdateMatch())
	}
}

func preloadMatch(tx *gorm.DB) *gorm.DB {
	return tx.Preload("UserA").Preload("UserB").Preload("ItemA").Preload("ItemB")
}

// GetMatches lists swap offers the caller sent or received.
func (h *Handler) GetMatches() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		query := preloadMatch(h.db(c)).Where("user_a_id = ? OR user_b_id = ?", userID, userID)
		if status := models.MatchStatus(c.Query("status")); status != "" {
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status parameter"})
				return
			}
			query = query.Where("status = ?", status)
		}

		matches := []models.Match{}
		if err := query.Order("created_at DESC").Find(&matches).Error; err != nil {
			h.respondError(c, "matches", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// CreateMatch offers one of the caller's listings in exchange for another
// user's listing.
func (h *Handler) CreateMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			ItemAID uuid.UUID  `json:"item_a_id" binding:"required"`
			ItemBID uuid.UUID  `json:"item_b_id" binding:"required"`
			UserBID *uuid.UUID `json:"user_b_id"`
			Message string     `json:"message" binding:"max=500"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.ItemAID == req.ItemBID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "item_a_id and item_b_id must differ"})
			return
		}

		var match models.Match
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			var itemA, itemB models.Listing
			if err := tx.First(&itemA, "id = ?", req.ItemAID).Error; err != nil {
				return err
			}
			if itemA.UserID != userID {
				return newHTTPError(http.StatusForbidden, "You can only offer your own items")
			}
			if err := tx.First(&itemB, "id = ?", req.ItemBID).Error; err != nil {
				return err
			}
			if itemB.UserID == userID {
				return newHTTPError(http.StatusBadRequest, "You cannot swap with yourself")
			}
			if req.UserBID != nil && *req.UserBID != itemB.UserID {
				return newHTTPError(http.StatusBadRequest, "user_b_id does not own item_b_id")
			}
			if itemA.Status != models.ListingAvailable || itemB.Status != models.ListingAvailable {
				return newHTTPError(http.StatusConflict, "Both items must be available")
			}

			var pending int64
			err := tx.Model(&models.Match{}).
				Where("item_a_id = ? AND item_b_id = ? AND status = ?", itemA.ID, itemB.ID, models.MatchPending).
				Count(&pending).Error
			if err != nil {
				return err
			}
			if pending > 0 {
				return newHTTPError(http.StatusConflict, "A pending offer for these items already exists")
			}

			match = models.Match{
				UserAID: userID,
				UserBID: itemB.UserID,
				ItemAID: itemA.ID,
				ItemBID: itemB.ID,
				Message: req.Message,
			}
			if err := tx.Create(&match).Error; err != nil {
				return err
			}
			return preloadMatch(tx).First(&match, "id = ?", match.ID).Error
		})
		if err != nil {
			h.respondError(c, "Item", err)
			return
		}

		h.publish(c.Request.Context(), events.MatchCreated, userID, match.ID, map[string]string{
			"user_b_id": match.UserBID.String(),
		})
		c.JSON(http.StatusCreated, gin.H{"match": match})
	}
}

// UpdateMatch accepts or cancels a swap offer. Only the receiver may accept;
// accepting awards karma to both sides.
func (h *Handler) UpdateMatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		matchID, ok := paramID(c, "match_id")
		if !ok {
			return
		}

		var req struct {
			Status models.MatchStatus `json:"status" binding:"required,oneof=pending matched cancelled"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var match models.Match
		changed := false
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&match, "id = ?", matchID).Error; err != nil {
				return err
			}
			if !match.Involves(userID) {
				return newHTTPError(http.StatusForbidden, "You are not part of this swap")
			}
			if req.Status == match.Status {
				return nil
			}
			if req.Status == models.MatchMatched && userID != match.UserBID {
				return newHTTPError(http.StatusForbidden, "Only the receiver can accept a swap")
			}
			if !match.Status.CanTransition(req.Status) {
				return models.ErrInvalidTransition
			}

			if err := tx.Model(&match).Update("status", req.Status).Error; err != nil {
				return err
			}
			if req.Status == models.MatchMatched {
				for _, id := range []uuid.UUID{match.UserAID, match.UserBID} {
					if err := models.AdjustKarma(tx, id, models.KarmaMatchAccepted); err != nil {
						return err
					}
				}
			}
			changed = true
			return preloadMatch(tx).First(&match, "id = ?", match.ID).Error
		})
		if err != nil {
			h.respondError(c, "Match", err)
			return
		}

		if changed {
			h.publish(c.Request.Context(), events.MatchUpdated, userID, match.ID, map[string]string{
				"status": string(match.Status),
			})
		}
		c.JSON(http.StatusOK, gin.H{"match": match})
	}
}
