package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/looply-api/models"
	"golang.org/x/sync/errgroup"
)

// UserRoutes sets up profile routes.
func (h *Handler) UserRoutes(router *gin.Engine) {
	users := router.Group("/users")
	users.GET("/:user_id", h.GetUserProfile())

	authed := users.Group("", h.requireAuth())
	{
		authed.GET("/me", h.GetMe())
		authed.PUT("/me", h.UpdateMe())
		authed.GET("/me/stats", h.GetMyStats())
	}
}

// GetMe returns the caller's own profile.
func (h *Handler) GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var user models.User
		if err := h.db(c).First(&user, "id = ?", userID).Error; err != nil {
			h.respondError(c, "user", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// UpdateMe edits the caller's profile. Email, role and karma are not editable.
func (h *Handler) UpdateMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Name     *string        `json:"name" binding:"omitempty,min=2,notblank"`
			Avatar   *string        `json:"avatar" binding:"omitempty,url"`
			Bio      *string        `json:"bio" binding:"omitempty,max=500"`
			Location *locationInput `json:"location"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := h.db(c).First(&user, "id = ?", userID).Error; err != nil {
			h.respondError(c, "user", err)
			return
		}

		columns := []string{}
		if req.Name != nil {
			user.Name = strings.TrimSpace(*req.Name)
			columns = append(columns, "name")
		}
		if req.Avatar != nil {
			user.Avatar = *req.Avatar
			columns = append(columns, "avatar")
		}
		if req.Bio != nil {
			user.Bio = *req.Bio
			columns = append(columns, "bio")
		}
		if req.Location != nil {
			user.Location = models.Location{Address: req.Location.Address, Lat: req.Location.Lat, Lng: req.Location.Lng}
			columns = append(columns, "location_address", "location_lat", "location_lng")
		}

		// karma_points moves through AdjustKarma only, so it is never part
		// of this write.
		if len(columns) > 0 {
			if err := h.db(c).Model(&user).Select(columns).Updates(&user).Error; err != nil {
				h.respondError(c, "user", err)
				return
			}
			if err := h.db(c).First(&user, "id = ?", user.ID).Error; err != nil {
				h.respondError(c, "user", err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// GetUserProfile returns a public profile with the user's available listings.
func (h *Handler) GetUserProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := paramID(c, "user_id")
		if !ok {
			return
		}

		var user models.User
		err := h.db(c).
			Preload("Listings", "status = ?", models.ListingAvailable).
			First(&user, "id = ?", userID).Error
		if err != nil {
			h.respondError(c, "user", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}

// GetMyStats aggregates the caller's activity counters concurrently.
func (h *Handler) GetMyStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var (
			user                                models.User
			listings, active, donations, claims int64
			swaps, likes                        int64
		)
		g, ctx := errgroup.WithContext(c.Request.Context())
		count := func(model interface{}, dst *int64, query string, args ...interface{}) {
			g.Go(func() error {
				return h.DB.WithContext(ctx).Model(model).Where(query, args...).Count(dst).Error
			})
		}

		g.Go(func() error {
			return h.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
		})
		count(&models.Listing{}, &listings, "user_id = ?", userID)
		count(&models.Listing{}, &active, "user_id = ? AND status = ?", userID, models.ListingAvailable)
		count(&models.Donation{}, &donations, "user_id = ?", userID)
		count(&models.Claim{}, &claims, "ngo_id = ?", userID)
		count(&models.Match{}, &swaps, "(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, models.MatchMatched)
		count(&models.Swipe{}, &likes, "user_id = ? AND action = ?", userID, models.SwipeLike)

		if err := g.Wait(); err != nil {
			h.respondError(c, "user", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"stats": gin.H{
			"karma_points":    user.KarmaPoints,
			"listings":        listings,
			"active_listings": active,
			"donations":       donations,
			"claims":          claims,
			"completed_swaps": swaps,
			"liked_items":     likes,
		}})
	}
}
