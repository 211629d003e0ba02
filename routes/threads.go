package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sidhant-sriv/looply-api/events"
	"github.com/sidhant-sriv/looply-api/models"
	"gorm.io/gorm"
)

// ThreadRoutes sets up direct messaging routes.
func (h *Handler) ThreadRoutes(router *gin.Engine) {
	threads := router.Group("/threads", h.requireAuth())
	{
		threads.GET("", h.GetThreads())
		threads.POST("", h.CreateThread())
		threads.GET("/:thread_id/messages", h.GetMessages())
		threads.POST("/:thread_id/messages", h.SendMessage())
	}
}

func isParticipant(tx *gorm.DB, threadID, userID uuid.UUID) error {
	if err := tx.Select("id").First(&models.ChatThread{}, "id = ?", threadID).Error; err != nil {
		return err
	}
	var count int64
	err := tx.Model(&models.ThreadParticipant{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return newHTTPError(http.StatusForbidden, "You are not part of this conversation")
	}
	return nil
}

// GetThreads lists the caller's conversations by latest activity with the
// last message and the number of unread messages from others.
func (h *Handler) GetThreads() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		threads := []models.ChatThread{}
		err := h.db(c).Preload("Participants.User").Preload("Listing").
			Where("id IN (SELECT thread_id FROM thread_participants WHERE user_id = ?)", userID).
			Order("updated_at DESC").
			Find(&threads).Error
		if err != nil {
			h.respondError(c, "threads", err)
			return
		}

		for i := range threads {
			t := &threads[i]
			var last models.Message
			err := h.db(c).Where("thread_id = ?", t.ID).Order("created_at DESC").First(&last).Error
			switch {
			case err == nil:
				t.LastMessage = &last
			case !errors.Is(err, gorm.ErrRecordNotFound):
				h.respondError(c, "threads", err)
				return
			}

			err = h.db(c).Model(&models.Message{}).
				Where("thread_id = ? AND sender_id <> ? AND is_read = ?", t.ID, userID, false).
				Count(&t.UnreadCount).Error
			if err != nil {
				h.respondError(c, "threads", err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"threads": threads})
	}
}

// CreateThread opens a conversation with another user, reusing an existing
// one between the same two users about the same listing.
func (h *Handler) CreateThread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		var req struct {
			ParticipantID uuid.UUID  `json:"participant_id" binding:"required"`
			ListingID     *uuid.UUID `json:"listing_id"`
			MatchID       *uuid.UUID `json:"match_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ParticipantID == userID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot message yourself"})
			return
		}

		var thread models.ChatThread
		created := false
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := tx.Select("id").First(&models.User{}, "id = ?", req.ParticipantID).Error; err != nil {
				return err
			}
			if req.ListingID != nil {
				if err := tx.Select("id").First(&models.Listing{}, "id = ?", *req.ListingID).Error; err != nil {
					return err
				}
			}

			shared := tx.Model(&models.ThreadParticipant{}).
				Select("thread_id").
				Where("user_id IN ?", []uuid.UUID{userID, req.ParticipantID}).
				Group("thread_id").
				Having("COUNT(*) = 2")
			existing := tx.Where("id IN (?)", shared)
			if req.ListingID != nil {
				existing = existing.Where("listing_id = ?", *req.ListingID)
			} else {
				existing = existing.Where("listing_id IS NULL")
			}
			err := existing.First(&thread).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			thread = models.ChatThread{
				ListingID: req.ListingID,
				MatchID:   req.MatchID,
				Participants: []models.ThreadParticipant{
					{UserID: userID},
					{UserID: req.ParticipantID},
				},
			}
			created = true
			return tx.Create(&thread).Error
		})
		if err != nil {
			h.respondError(c, "User", err)
			return
		}

		if err := h.db(c).Preload("Participants.User").First(&thread, "id = ?", thread.ID).Error; err != nil {
			h.respondError(c, "thread", err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"thread": thread})
	}
}

// GetMessages returns a conversation oldest first and marks messages from
// the other side as read.
func (h *Handler) GetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		threadID, ok := paramID(c, "thread_id")
		if !ok {
			return
		}

		if err := isParticipant(h.db(c), threadID, userID); err != nil {
			h.respondError(c, "Thread", err)
			return
		}

		err := h.db(c).Model(&models.Message{}).
			Where("thread_id = ? AND sender_id <> ? AND is_read = ?", threadID, userID, false).
			UpdateColumn("is_read", true).Error
		if err != nil {
			h.respondError(c, "messages", err)
			return
		}

		messages := []models.Message{}
		err = h.db(c).Preload("Sender").
			Where("thread_id = ?", threadID).
			Order("created_at ASC").
			Find(&messages).Error
		if err != nil {
			h.respondError(c, "messages", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}

// SendMessage posts to a conversation the caller takes part in.
func (h *Handler) SendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUser(c)
		if !ok {
			return
		}
		threadID, ok := paramID(c, "thread_id")
		if !ok {
			return
		}

		var req struct {
			Content string             `json:"content" binding:"required,max=5000,notblank"`
			Type    models.MessageType `json:"type" binding:"omitempty,oneof=text image system"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		message := models.Message{ThreadID: threadID, SenderID: userID, Content: req.Content, Type: req.Type}
		err := h.db(c).Transaction(func(tx *gorm.DB) error {
			if err := isParticipant(tx, threadID, userID); err != nil {
				return err
			}
			if err := tx.Create(&message).Error; err != nil {
				return err
			}
			return tx.Model(&models.ChatThread{}).
				Where("id = ?", threadID).
				UpdateColumn("updated_at", time.Now().UTC()).Error
		})
		if err != nil {
			h.respondError(c, "Thread", err)
			return
		}

		h.publish(c.Request.Context(), events.MessageSent, userID, threadID, map[string]string{
			"message_id": message.ID.String(),
			"type":       string(message.Type),
		})
		c.JSON(http.StatusCreated, gin.H{"message": message})
	}
}
