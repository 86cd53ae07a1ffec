package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/service"
)

type ConversationHandler struct {
	convs    service.ConversationService
	messages service.MessageService
	logger   *slog.Logger
}

func NewConversationHandler(convs service.ConversationService, messages service.MessageService, logger *slog.Logger) *ConversationHandler {
	return &ConversationHandler{convs: convs, messages: messages, logger: orDefault(logger)}
}

type ConversationResponse struct {
	ID             string               `json:"id"`
	Members        []string             `json:"members"`
	LastMessage    string               `json:"lastMessage"`
	ActiveOfferID  *string              `json:"activeOfferId"`
	LastActivityAt time.Time            `json:"lastActivityAt"`
	CreatedAt      time.Time            `json:"createdAt"`
	Peer           *model.PublicProfile `json:"peer,omitempty"`
	LatestMessage  *MessageResponse     `json:"latestMessage,omitempty"`
}

type MessageResponse struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Text           string    `json:"text"`
	OfferID        *string   `json:"offerId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type CreateConversationRequest struct {
	PeerID string `json:"peerId"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

func toConversationResponse(cv *model.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:             cv.ID,
		Members:        cv.Members(),
		LastMessage:    cv.LastMessage,
		ActiveOfferID:  cv.ActiveOfferID,
		LastActivityAt: cv.LastActivityAt,
		CreatedAt:      cv.CreatedAt,
	}
}

func toMessageResponse(m *model.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderUID,
		Text:           m.Text,
		OfferID:        m.OfferID,
		CreatedAt:      m.CreatedAt,
	}
}

func (h *ConversationHandler) Create(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateConversationRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	cv, err := h.convs.FindOrCreate(c.Request().Context(), uid, req.PeerID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	views, err := h.convs.ListVisible(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	resp := make([]ConversationResponse, 0, len(views))
	for _, v := range views {
		r := toConversationResponse(&v.Conversation)
		r.Peer = v.Peer
		r.LatestMessage = toMessageResponse(v.LatestMessage)
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	cv, err := h.convs.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toConversationResponse(cv))
}

func (h *ConversationHandler) Hide(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	destroyed, err := h.convs.Hide(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"destroyed": destroyed})
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	seq, err := h.messages.List(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	resp := make([]*MessageResponse, 0)
	for m, err := range seq {
		if err != nil {
			return respondError(c, h.logger, err)
		}
		resp = append(resp, toMessageResponse(&m))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) CreateMessage(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	msg, err := h.messages.Send(c.Request().Context(), c.Param("id"), uid, req.Text)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}
