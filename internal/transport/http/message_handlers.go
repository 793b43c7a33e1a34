package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/messagely/messagely-server/internal/messaging"
	"github.com/messagely/messagely-server/internal/store"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// MessageHandlers provides HTTP handlers for message endpoints.
type MessageHandlers struct {
	service *messaging.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(svc *messaging.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: svc,
		log:     logger,
	}
}

// SendMessageRequest represents the create message request body.
type SendMessageRequest struct {
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Body         string `json:"body"`
}

// UserDetailResponse represents joined user detail in message responses.
type UserDetailResponse struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// MessageResponse represents a freshly created message.
type MessageResponse struct {
	ID           int64  `json:"id"`
	FromUsername string `json:"from_username"`
	ToUsername   string `json:"to_username"`
	Body         string `json:"body"`
	SentAt       string `json:"sent_at"`
}

// MessageDetailResponse represents a message with sender/recipient detail.
type MessageDetailResponse struct {
	ID       int64              `json:"id"`
	Body     string             `json:"body"`
	SentAt   string             `json:"sent_at"`
	ReadAt   *string            `json:"read_at"`
	FromUser UserDetailResponse `json:"from_user"`
	ToUser   UserDetailResponse `json:"to_user"`
}

// ReadReceiptResponse represents the result of marking a message read.
type ReadReceiptResponse struct {
	ID     int64  `json:"id"`
	ReadAt string `json:"read_at"`
}

func messageToResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:           m.ID,
		FromUsername: m.FromUsername,
		ToUsername:   m.ToUsername,
		Body:         m.Body,
		SentAt:       m.SentAt.Format(timeLayout),
	}
}

func detailToResponse(d *store.MessageDetail) MessageDetailResponse {
	resp := MessageDetailResponse{
		ID:     d.ID,
		Body:   d.Body,
		SentAt: d.SentAt.Format(timeLayout),
		FromUser: UserDetailResponse{
			Username:  d.FromUser.Username,
			FirstName: d.FromUser.FirstName,
			LastName:  d.FromUser.LastName,
			Phone:     d.FromUser.Phone,
		},
		ToUser: UserDetailResponse{
			Username:  d.ToUser.Username,
			FirstName: d.ToUser.FirstName,
			LastName:  d.ToUser.LastName,
			Phone:     d.ToUser.Phone,
		},
	}
	if d.ReadAt != nil {
		readAt := d.ReadAt.Format(timeLayout)
		resp.ReadAt = &readAt
	}
	return resp
}

// Send handles posting a new message.
// POST /messages
func (h *MessageHandlers) Send(c *gin.Context) {
	caller, ok := callerUsername(c)
	if !ok {
		h.log.Error().Msg("username not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), req.FromUsername, req.ToUsername, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, messaging.ErrMissingFields):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing required fields"})
		case errors.Is(err, messaging.ErrUnknownUser):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown username"})
		default:
			h.log.Error().Err(err).Str("caller", caller).Msg("failed to send message")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Int64("message_id", msg.ID).Str("from", msg.FromUsername).Str("to", msg.ToUsername).Msg("message sent")
	c.JSON(http.StatusCreated, gin.H{"message": messageToResponse(msg)})
}

// Get handles fetching a single message with user detail.
// GET /messages/:id
func (h *MessageHandlers) Get(c *gin.Context) {
	caller, ok := callerUsername(c)
	if !ok {
		h.log.Error().Msg("username not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.log.Debug().Str("id", c.Param("id")).Msg("invalid message id")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	detail, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, messaging.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
		case errors.Is(err, messaging.ErrNotParticipant):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "cannot read this message"})
		default:
			h.log.Error().Err(err).Int64("message_id", id).Msg("failed to get message")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": detailToResponse(detail)})
}

// MarkRead handles marking a message as read.
// POST /messages/:id/read
func (h *MessageHandlers) MarkRead(c *gin.Context) {
	caller, ok := callerUsername(c)
	if !ok {
		h.log.Error().Msg("username not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.log.Debug().Str("id", c.Param("id")).Msg("invalid message id")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	msg, err := h.service.MarkRead(c.Request.Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, messaging.ErrMessageNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
		case errors.Is(err, messaging.ErrNotRecipient):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "cannot set this message to read"})
		default:
			h.log.Error().Err(err).Int64("message_id", id).Msg("failed to mark message read")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Int64("message_id", id).Str("reader", caller).Msg("message marked read")
	c.JSON(http.StatusOK, gin.H{"message": ReadReceiptResponse{
		ID:     msg.ID,
		ReadAt: msg.ReadAt.Format(timeLayout),
	}})
}
