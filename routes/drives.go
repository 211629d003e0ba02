package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/middleware"
	"github.com/sidhant-sriv/looply-api/models"
)

// DriveRoutes sets up NGO drive routes. Browsing is public.
func (h *Handler) DriveRoutes(router *gin.Engine) {
	drives := router.Group("/drives")
	drives.GET("", h.GetDrives())
	drives.GET("/:drive_id", h.GetDrive())

	ngo := drives.Group("", h.requireAuth(), middleware.RequireRole(models.RoleNGO))
	{
		ngo.GET("/mine", h.GetMyDrives())
		ngo.POST("", h.CreateDrive())
		ngo.PATCH("/:drive_id", h.UpdateDrive())
		ngo.GET("/:drive_id/donations", h.GetDriveDonations())
	}
}

// GetDrives lists drives newest first. Only active drives are shown unless
// status=all or status=completed is given.
func (h *Handler) GetDrives() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := h.db(c).Preload("NGO")

		switch status := c.DefaultQuery("status", string(models.DriveActive)); status {
		case "all":
		case string(models.DriveActive), string(models.DriveCompleted):
			query = query.Where("status = ?", status)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status parameter"})
			return
		}
		if priority := models.Priority(c.Query("priority")); priority != "" {
			if !priority.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority parameter"})
				return
			}
			query = query.Where("priority = ?", priority)
		}

		drives := []models.NGODrive{}
		if err := query.Order("created_at DESC").Find(&drives).Error; err != nil {
			h.respondError(c, "drives", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"drives": drives})
	}
}

// GetDrive retrieves one drive with its NGO.
func (h *Handler) GetDrive() gin.HandlerFunc {
	return func(c *gin.Context) {
		driveID, ok := paramID(c, "drive_id")
		if !ok {
			return
		}

		var drive models.NGODrive
		if err := h.db(c).Preload("NGO").First(&drive, "id = ?", driveID).Error; err != nil {
			h.respondError(c, "Drive", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"drive": drive})
	}
}

// GetMyDrives lists the calling NGO's drives in every status.
func (h *Handler) GetMyDrives() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		drives := []models.NGODrive{}
		if err := h.db(c).Where("ngo_id = ?", userID).Order("created_at DESC").Find(&drives).Error; err != nil {
			h.respondError(c, "drives", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"drives": drives})
	}
}

// CreateDrive starts a donation campaign for the calling NGO.
func (h *Handler) CreateDrive() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Title       string          `json:"title" binding:"required,min=3,max=200,notblank"`
			Description string          `json:"description" binding:"required,notblank"`
			Priority    models.Priority `json:"priority" binding:"omitempty,oneof=high medium low"`
			Deadline    *time.Time      `json:"deadline"`
			Tags        []string        `json:"tags" binding:"omitempty,tagset"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Deadline != nil && req.Deadline.Before(time.Now()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "deadline must be in the future"})
			return
		}

		drive := models.NGODrive{
			NGOID:       userID,
			Title:       strings.TrimSpace(req.Title),
			Description: req.Description,
			Priority:    req.Priority,
			Deadline:    req.Deadline,
			Tags:        cleanTags(req.Tags),
		}
		if err := h.db(c).Create(&drive).Error; err != nil {
			h.respondError(c, "drive", err)
			return
		}

		h.publish(c.Request.Context(), events.DriveCreated, userID, drive.ID, map[string]string{
			"priority": string(drive.Priority),
		})
		c.JSON(http.StatusCreated, gin.H{"drive": drive})
	}
}

// ownedDrive loads a drive and checks the caller runs it.
func (h *Handler) ownedDrive(c *gin.Context) (models.NGODrive, bool) {
	var drive models.NGODrive

	userID, ok := currentUser(c)
	if !ok {
		return drive, false
	}
	driveID, ok := paramID(c, "drive_id")
	if !ok {
		return drive, false
	}

	if err := h.db(c).First(&drive, "id = ?", driveID).Error; err != nil {
		h.respondError(c, "Drive", err)
		return drive, false
	}
	if drive.NGOID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not run this drive"})
		return drive, false
	}
	return drive, true
}

// UpdateDrive changes progress, status, priority or deadline. Progress is
// clamped to 0..100 and 100 completes the drive.
func (h *Handler) UpdateDrive() gin.HandlerFunc {
	return func(c *gin.Context) {
		drive, ok := h.ownedDrive(c)
		if !ok {
			return
		}

		var req struct {
			Progress *int                `json:"progress"`
			Status   *models.DriveStatus `json:"status" binding:"omitempty,oneof=active completed"`
			Priority *models.Priority    `json:"priority" binding:"omitempty,oneof=high medium low"`
			Deadline *time.Time          `json:"deadline"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		columns := []string{}
		if req.Status != nil {
			drive.Status = *req.Status
			columns = append(columns, "status")
		}
		if req.Progress != nil {
			drive.SetProgress(*req.Progress)
			columns = append(columns, "progress", "status")
		}
		if req.Priority != nil {
			drive.Priority = *req.Priority
			columns = append(columns, "priority")
		}
		if req.Deadline != nil {
			drive.Deadline = req.Deadline
			columns = append(columns, "deadline")
		}

		if len(columns) > 0 {
			if err := h.db(c).Model(&drive).Select(columns).Updates(&drive).Error; err != nil {
				h.respondError(c, "drive", err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"drive": drive})
	}
}

// GetDriveDonations lists pledges to one of the caller's drives.
func (h *Handler) GetDriveDonations() gin.HandlerFunc {
	return func(c *gin.Context) {
		drive, ok := h.ownedDrive(c)
		if !ok {
			return
		}

		donations := []models.Donation{}
		err := h.db(c).Preload("User").Preload("Item").
			Where("ngo_drive_id = ?", drive.ID).
			Order("created_at DESC").
			Find(&donations).Error
		if err != nil {
			h.respondError(c, "donations", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"donations": donations})
	}
}
