package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/michaelgiba/covered/internal/logging"
	"github.com/michaelgiba/covered/internal/media"
)

type topicList struct {
	Topics []media.Topic `json:"topics"`
}

func (s *Server) createProcessedInput(c *gin.Context) {
	var input media.ProcessedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if problem := input.Validate(); problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	ctx := c.Request.Context()
	if err := s.store.UpsertInput(ctx, input); err != nil {
		logging.WithContext(ctx, s.logger).Error("failed to persist submitted input",
			logging.String(logging.FieldTopicID, input.ID),
			logging.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist input"})
		return
	}
	if s.queue != nil {
		if err := s.queue.Push(ctx, input.ID); err != nil {
			logging.WithContext(ctx, s.logger).Error("failed to enqueue submitted input",
				logging.String(logging.FieldTopicID, input.ID),
				logging.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue input"})
			return
		}
	}
	c.JSON(http.StatusCreated, input)
}

func (s *Server) getProcessedInput(c *gin.Context) {
	input, err := s.store.GetInput(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load input"})
		return
	}
	if input == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "processed input not found"})
		return
	}
	c.JSON(http.StatusOK, input)
}

func (s *Server) createPlaybackContent(c *gin.Context) {
	var playback media.PlaybackContent
	if err := c.ShouldBindJSON(&playback); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(playback.ID) == "" || strings.TrimSpace(playback.ProcessedInputID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id and processed_input_id are required"})
		return
	}

	ctx := c.Request.Context()
	topic, err := s.store.GetTopic(ctx, playback.ProcessedInputID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load topic"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "processed input not found"})
		return
	}
	if err := s.store.UpsertPlayback(ctx, playback.ProcessedInputID, playback); err != nil {
		logging.WithContext(ctx, s.logger).Error("failed to persist submitted playback",
			logging.String(logging.FieldTopicID, playback.ProcessedInputID),
			logging.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist playback"})
		return
	}
	c.JSON(http.StatusCreated, playback)
}

func (s *Server) listTopics(c *gin.Context) {
	topics, err := s.store.AllTopics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load topics"})
		return
	}
	c.JSON(http.StatusOK, topicList{Topics: topics})
}

func (s *Server) listPendingTopics(c *gin.Context) {
	topics, err := s.store.TopicsMissingPlayback(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load pending topics"})
		return
	}
	c.JSON(http.StatusOK, topicList{Topics: topics})
}

func (s *Server) getTopic(c *gin.Context) {
	topic, err := s.store.GetTopic(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load topic"})
		return
	}
	if topic == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "topic not found"})
		return
	}
	c.JSON(http.StatusOK, topic)
}

func (s *Server) health(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"inputs":  stats.Inputs,
		"pending": stats.Pending,
	})
}
