package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/swap-backend/internal/model"
	"github.com/shinyyama/swap-backend/internal/service"
)

type OfferHandler struct {
	svc    service.OfferService
	logger *slog.Logger
}

func NewOfferHandler(svc service.OfferService, logger *slog.Logger) *OfferHandler {
	return &OfferHandler{svc: svc, logger: orDefault(logger)}
}

type OfferTermsRequest struct {
	OfferedProducts   []string `json:"offeredProducts"`
	RequestedProducts []string `json:"requestedProducts"`
	OfferedCash       *int64   `json:"offeredCash"`
	RequestedCash     *int64   `json:"requestedCash"`
	Type              string   `json:"type"`
	Message           string   `json:"message"`
}

func (r OfferTermsRequest) terms() service.OfferTerms {
	return service.OfferTerms{
		OfferedProducts:   r.OfferedProducts,
		RequestedProducts: r.RequestedProducts,
		OfferedCash:       r.OfferedCash,
		RequestedCash:     r.RequestedCash,
		Type:              r.Type,
		Message:           r.Message,
	}
}

type CreateOfferRequest struct {
	OfferedTo string `json:"offeredTo"`
	OfferTermsRequest
}

type OfferResultResponse struct {
	Offer   *model.Offer     `json:"offer"`
	Message *MessageResponse `json:"message,omitempty"`
}

type OfferChainResponse struct {
	Offer         model.Offer   `json:"offer"`
	Chain         []model.Offer `json:"chain"`
	IsChainClosed bool          `json:"isChainClosed"`
}

type ChainNodeResponse struct {
	Offer    model.Offer          `json:"offer"`
	Counters []*ChainNodeResponse `json:"counters"`
}

type OfferTreeResponse struct {
	Root          *ChainNodeResponse `json:"root"`
	Size          int                `json:"size"`
	IsChainClosed bool               `json:"isChainClosed"`
}

func toChainNodeResponse(n *service.ChainNode) *ChainNodeResponse {
	out := &ChainNodeResponse{Offer: n.Offer, Counters: make([]*ChainNodeResponse, 0, len(n.Counters))}
	for _, child := range n.Counters {
		out.Counters = append(out.Counters, toChainNodeResponse(child))
	}
	return out
}

func (h *OfferHandler) Create(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateOfferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.svc.Create(c.Request().Context(), uid, service.CreateOfferInput{
		OfferedTo:  req.OfferedTo,
		OfferTerms: req.terms(),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, OfferResultResponse{Offer: res.Offer, Message: toMessageResponse(res.Message)})
}

func (h *OfferHandler) Get(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	offer, err := h.svc.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, offer)
}

func (h *OfferHandler) GetChain(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.Request().Context()
	switch c.QueryParam("view") {
	case "", "direct":
		chain, err := h.svc.GetChain(ctx, c.Param("id"), uid)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, OfferChainResponse{
			Offer:         chain.Offer,
			Chain:         chain.Chain,
			IsChainClosed: chain.IsChainClosed,
		})
	case "tree":
		tree, err := h.svc.GetChainTree(ctx, c.Param("id"), uid)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return c.JSON(http.StatusOK, OfferTreeResponse{
			Root:          toChainNodeResponse(tree.Root),
			Size:          tree.Size,
			IsChainClosed: tree.IsChainClosed,
		})
	default:
		return badRequest(c, "view must be direct or tree")
	}
}

func (h *OfferHandler) Accept(c echo.Context) error {
	return h.respond(c, h.svc.Accept)
}

func (h *OfferHandler) Reject(c echo.Context) error {
	return h.respond(c, h.svc.Reject)
}

func (h *OfferHandler) Withdraw(c echo.Context) error {
	return h.respond(c, h.svc.Withdraw)
}

func (h *OfferHandler) respond(c echo.Context, op func(ctx context.Context, offerID, actor string) (*model.Offer, error)) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	offer, err := op(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, offer)
}

func (h *OfferHandler) Counter(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req OfferTermsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.svc.Counter(c.Request().Context(), c.Param("id"), uid, req.terms())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, OfferResultResponse{Offer: res.Offer, Message: toMessageResponse(res.Message)})
}

func (h *OfferHandler) Delete(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id"), uid); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OfferHandler) ListSent(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	offers, err := h.svc.ListSent(c.Request().Context(), uid, c.QueryParam("status"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, nonNil(offers))
}

func (h *OfferHandler) ListReceived(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	offers, err := h.svc.ListReceived(c.Request().Context(), uid, c.QueryParam("status"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, nonNil(offers))
}

func nonNil(offers []model.Offer) []model.Offer {
	if offers == nil {
		return []model.Offer{}
	}
	return offers
}
