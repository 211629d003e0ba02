package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
)

// DonationRoutes sets up pledge routes.
func (h *Handler) DonationRoutes(router *gin.Engine) {
	donations := router.Group("/donations", h.requireAuth())
	{
		donations.GET("", h.GetMyDonations())
		donations.POST("", h.CreateDonation())
		donations.PATCH("/:donation_id", h.UpdateDonation())
	}
}

// GetMyDonations lists the caller's pledges with the drive and its NGO.
func (h *Handler) GetMyDonations() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		donations := []models.Donation{}
		err := h.db(c).Preload("Drive").Preload("Drive.NGO").Preload("Item").
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&donations).Error
		if err != nil {
			h.respondError(c, "donations", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"donations": donations})
	}
}

// CreateDonation pledges to an active drive, optionally with one of the
// caller's listings.
func (h *Handler) CreateDonation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			NGODriveID uuid.UUID  `json:"ngo_drive_id" binding:"required"`
			ItemID     *uuid.UUID `json:"item_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var donation models.Donation
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			var drive models.NGODrive
			if err := tx.First(&drive, "id = ?", req.NGODriveID).Error; err != nil {
				return err
			}
			if drive.Status != models.DriveActive {
				return newHTTPError(http.StatusConflict, "Drive is no longer accepting donations")
			}

			if req.ItemID != nil {
				var item models.Listing
				if err := tx.First(&item, "id = ?", *req.ItemID).Error; err != nil {
					return err
				}
				if item.UserID != userID {
					return newHTTPError(http.StatusForbidden, "You can only donate your own items")
				}
			}

			donation = models.Donation{UserID: userID, NGODriveID: drive.ID, ItemID: req.ItemID}
			if err := tx.Create(&donation).Error; err != nil {
				return err
			}
			return tx.Preload("Drive").First(&donation, "id = ?", donation.ID).Error
		})
		if err != nil {
			h.respondError(c, "Drive", err)
			return
		}

		h.publish(c.Request.Context(), events.DonationCreated, userID, donation.ID, map[string]string{
			"ngo_drive_id": donation.NGODriveID.String(),
		})
		c.JSON(http.StatusCreated, gin.H{"donation": donation})
	}
}

// UpdateDonation moves a pledge forward. The donor marks it delivered and
// the drive's NGO marks it received, which credits the donor's karma.
func (h *Handler) UpdateDonation() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		donationID, ok := paramID(c, "donation_id")
		if !ok {
			return
		}

		var req struct {
			Status models.DonationStatus `json:"status" binding:"required,oneof=pledged delivered received"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var donation models.Donation
		changed := false
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("Drive").First(&donation, "id = ?", donationID).Error; err != nil {
				return err
			}
			if donation.Drive == nil {
				return gorm.ErrRecordNotFound
			}
			isDonor := donation.UserID == userID
			isNGO := donation.Drive.NGOID == userID
			if !isDonor && !isNGO {
				return newHTTPError(http.StatusForbidden, "You do not have permission to update this donation")
			}
			if req.Status == donation.Status {
				return nil
			}

			switch req.Status {
			case models.DonationDelivered:
				if !isDonor {
					return newHTTPError(http.StatusForbidden, "Only the donor can mark a donation delivered")
				}
			case models.DonationReceived:
				if !isNGO {
					return newHTTPError(http.StatusForbidden, "Only the drive's NGO can mark a donation received")
				}
			}
			if !donation.Status.CanTransition(req.Status) {
				return models.ErrInvalidTransition
			}

			if err := tx.Model(&models.Donation{}).Where("id = ?", donation.ID).Update("status", req.Status).Error; err != nil {
				return err
			}
			donation.Status = req.Status
			if req.Status == models.DonationReceived {
				if err := models.AdjustKarma(tx, donation.UserID, models.KarmaDonationReceived); err != nil {
					return err
				}
			}
			changed = true
			return nil
		})
		if err != nil {
			h.respondError(c, "Donation", err)
			return
		}

		if changed {
			h.publish(c.Request.Context(), events.DonationUpdated, userID, donation.ID, map[string]string{
				"status": string(donation.Status),
			})
		}
		c.JSON(http.StatusOK, gin.H{"donation": donation})
	}
}
