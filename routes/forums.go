package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
)

// ForumRoutes sets up community forum routes. Reading is public.
func (h *Handler) ForumRoutes(router *gin.Engine) {
	forums := router.Group("/forums")
	forums.GET("", h.GetForumPosts())
	forums.GET("/:forum_id", h.GetForumPost())
	forums.GET("/:forum_id/comments", h.GetComments())

	authed := forums.Group("", h.requireAuth())
	{
		authed.POST("", h.CreateForumPost())
		authed.DELETE("/:forum_id", h.DeleteForumPost())
		authed.POST("/:forum_id/comments", h.CreateComment())
	}
	router.DELETE("/comments/:comment_id", h.requireAuth(), h.DeleteComment())
}

// attachReplyCounts fills RepliesCount with one grouped query.
func attachReplyCounts(tx *gorm.DB, posts []models.ForumPost) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}

	var rows []struct {
		ForumID uuid.UUID
		Count   int64
	}
	err := tx.Model(&models.Comment{}).
		Select("forum_id, COUNT(*) AS count").
		Where("forum_id IN ?", ids).
		Group("forum_id").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.ForumID] = r.Count
	}
	for i := range posts {
		posts[i].RepliesCount = counts[posts[i].ID]
	}
	return nil
}

// GetForumPosts lists posts newest first, optionally within one community.
func (h *Handler) GetForumPosts() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := pagination(c)
		if !ok {
			return
		}

		query := func() *gorm.DB {
			q := h.db(c).Model(&models.ForumPost{})
			if community := strings.TrimSpace(c.Query("community")); community != "" {
				q = q.Where("community = ?", community)
			}
			return q
		}

		var total int64
		if err := query().Count(&total).Error; err != nil {
			h.respondError(c, "forum posts", err)
			return
		}

		posts := []models.ForumPost{}
		err := query().Preload("Author").
			Order("created_at DESC").
			Offset(p.offset()).
			Limit(p.PageSize).
			Find(&posts).Error
		if err == nil {
			err = attachReplyCounts(h.db(c), posts)
		}
		if err != nil {
			h.respondError(c, "forum posts", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"posts":       posts,
			"total":       total,
			"page":        p.Page,
			"page_size":   p.PageSize,
			"total_pages": p.totalPages(total),
		})
	}
}

func preloadComments(tx *gorm.DB) *gorm.DB {
	return tx.Order("created_at ASC").Preload("Author")
}

// GetForumPost retrieves a post with its comments, oldest first.
func (h *Handler) GetForumPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		forumID, ok := paramID(c, "forum_id")
		if !ok {
			return
		}

		var post models.ForumPost
		err := h.db(c).Preload("Author").
			Preload("Comments", preloadComments).
			First(&post, "id = ?", forumID).Error
		if err != nil {
			h.respondError(c, "Post", err)
			return
		}
		post.RepliesCount = int64(len(post.Comments))
		c.JSON(http.StatusOK, gin.H{"post": post})
	}
}

// CreateForumPost starts a discussion.
func (h *Handler) CreateForumPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			Title     string   `json:"title" binding:"required,min=3,max=200,notblank"`
			Content   string   `json:"content" binding:"required,notblank"`
			Community string   `json:"community" binding:"max=100"`
			Tags      []string `json:"tags" binding:"omitempty,tagset"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		post := models.ForumPost{
			UserID:    userID,
			Title:     strings.TrimSpace(req.Title),
			Content:   req.Content,
			Community: strings.TrimSpace(req.Community),
			Tags:      cleanTags(req.Tags),
		}
		if err := h.db(c).Create(&post).Error; err != nil {
			h.respondError(c, "post", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"post": post})
	}
}

// DeleteForumPost removes the caller's post and its comments.
func (h *Handler) DeleteForumPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		forumID, ok := paramID(c, "forum_id")
		if !ok {
			return
		}

		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			var post models.ForumPost
			if err := tx.First(&post, "id = ?", forumID).Error; err != nil {
				return err
			}
			if post.UserID != userID {
				return newHTTPError(http.StatusForbidden, "You can only delete your own posts")
			}
			if err := tx.Where("forum_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
				return err
			}
			return tx.Delete(&post).Error
		})
		if err != nil {
			h.respondError(c, "Post", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
	}
}

// GetComments lists a post's comments, oldest first.
func (h *Handler) GetComments() gin.HandlerFunc {
	return func(c *gin.Context) {
		forumID, ok := paramID(c, "forum_id")
		if !ok {
			return
		}

		if err := h.db(c).Select("id").First(&models.ForumPost{}, "id = ?", forumID).Error; err != nil {
			h.respondError(c, "Post", err)
			return
		}

		comments := []models.Comment{}
		if err := preloadComments(h.db(c)).Where("forum_id = ?", forumID).Find(&comments).Error; err != nil {
			h.respondError(c, "comments", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"comments": comments})
	}
}

// CreateComment replies to a post.
func (h *Handler) CreateComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		forumID, ok := paramID(c, "forum_id")
		if !ok {
			return
		}

		var req struct {
			Content string `json:"content" binding:"required,max=5000,notblank"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := h.db(c).Select("id").First(&models.ForumPost{}, "id = ?", forumID).Error; err != nil {
			h.respondError(c, "Post", err)
			return
		}

		comment := models.Comment{ForumID: forumID, UserID: userID, Content: req.Content}
		if err := h.db(c).Create(&comment).Error; err != nil {
			h.respondError(c, "comment", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"comment": comment})
	}
}

// DeleteComment removes one of the caller's comments.
func (h *Handler) DeleteComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		commentID, ok := paramID(c, "comment_id")
		if !ok {
			return
		}

		var comment models.Comment
		if err := h.db(c).First(&comment, "id = ?", commentID).Error; err != nil {
			h.respondError(c, "Comment", err)
			return
		}
		if comment.UserID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
			return
		}
		if err := h.db(c).Delete(&comment).Error; err != nil {
			h.respondError(c, "comment", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
	}
}
