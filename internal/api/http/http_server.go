package http

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/fairdex-labs/engine/internal/api/dto"
	"github.com/fairdex-labs/engine/internal/api/ws"
	"github.com/fairdex-labs/engine/internal/core"
	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/middleware"
)

type HTTPServer struct {
	Eng  *core.Engine
	Feed *ws.Hub
}

func NewHTTPServer(eng *core.Engine, feed *ws.Hub) *HTTPServer {
	return &HTTPServer{Eng: eng, Feed: feed}
}

func (s *HTTPServer) Router(rateLimit time.Duration) *gin.Engine {
	r := gin.Default()

	rl := middleware.NewRateLimiter(rateLimit)
	r.Use(rl.Middleware())

	r.POST("/commitments", s.submitCommitment)
	r.POST("/commitments/:id/reveal", s.reveal)
	r.GET("/commitments/:id", s.getCommitment)
	r.POST("/orders", s.submitOrder)
	r.POST("/orders/cancel", s.cancelOrder)
	r.GET("/orders/:id", s.getOrder)
	r.GET("/orders/:id/trades", s.getTrades)
	r.GET("/orderbook", s.getOrderbook)
	r.GET("/batches/current", s.getCurrentBatch)
	r.GET("/batches/:id", s.getBatch)

	if s.Feed != nil {
		r.GET("/ws", gin.WrapF(s.Feed.ServeHTTP))
	}

	return r
}

func (s *HTTPServer) Run(addr string, rateLimit time.Duration) error {
	return s.Router(rateLimit).Run(addr)
}

func (s *HTTPServer) submitCommitment(c *gin.Context) {
	var req dto.SubmitCommitmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, err := hex.DecodeString(req.Hash)
	if err != nil || len(raw) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hash must be 32 hex-encoded bytes"})
		return
	}
	var hash [32]byte
	copy(hash[:], raw)

	cm, err := s.Eng.SubmitCommitment(c.Request.Context(), req.Trader, hash, req.Stake, time.Now())
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SubmitCommitmentResponse{
		CommitmentID: cm.ID,
		BatchID:      cm.BatchID,
		SubmitTime:   cm.SubmitTime,
	})
}

func (s *HTTPServer) reveal(c *gin.Context) {
	id := c.Param("id")
	var req dto.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	nonce, err := hex.DecodeString(req.Nonce)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nonce must be hex-encoded"})
		return
	}

	payload := domain.OrderPayload{
		Side:     domain.Side(req.Side),
		Type:     domain.OrderType(req.Type),
		Price:    req.Price,
		Quantity: req.Quantity,
	}

	o, err := s.Eng.Reveal(c.Request.Context(), id, payload, nonce, time.Now())
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.RevealResponse{
		CommitmentID: id,
		OrderID:      o.ID,
		BatchID:      o.BatchID,
		Status:       string(o.Status),
	})
}

func (s *HTTPServer) getCommitment(c *gin.Context) {
	cm, err := s.Eng.GetCommitment(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cm)
}

func (s *HTTPServer) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ValidateOrder(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := domain.OrderPayload{
		Side:     domain.Side(req.Side),
		Type:     domain.OrderType(req.Type),
		Price:    req.Price,
		Quantity: req.Quantity,
	}

	o, trades, err := s.Eng.SubmitOrder(c.Request.Context(), req.Trader, payload, time.Now())
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SubmitOrderResponse{
		OrderID:   o.ID,
		Trades:    convertTrades(trades),
		Remaining: o.Remaining,
		Status:    string(o.Status),
	})
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Eng.CancelOrder(c.Request.Context(), req.OrderID, req.Trader, time.Now()); err != nil {
		c.JSON(errStatus(err), dto.CancelOrderResponse{
			OrderID:   req.OrderID,
			Cancelled: false,
			Message:   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, dto.CancelOrderResponse{
		OrderID:   req.OrderID,
		Cancelled: true,
	})
}

func (s *HTTPServer) getOrder(c *gin.Context) {
	o, err := s.Eng.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderResponse{Order: convertOrder(o)})
}

func (s *HTTPServer) getTrades(c *gin.Context) {
	trades, err := s.Eng.GetTradesForOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetTradesResponse{Trades: convertTrades(trades)})
}

func (s *HTTPServer) getOrderbook(c *gin.Context) {
	snap, err := s.Eng.GetOrderBook(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetOrderbookResponse{
		Bids:      convertOrders(snap.Bids),
		Asks:      convertOrders(snap.Asks),
		Timestamp: snap.Timestamp,
	})
}

func (s *HTTPServer) getCurrentBatch(c *gin.Context) {
	b, err := s.Eng.CurrentBatch(c.Request.Context())
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetBatchResponse{Batch: convertBatch(b)})
}

func (s *HTTPServer) getBatch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch id must be an unsigned integer"})
		return
	}
	b, err := s.Eng.GetBatch(c.Request.Context(), id)
	if err != nil {
		c.JSON(errStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.GetBatchResponse{
		Batch:  convertBatch(b),
		Trades: convertTrades(s.Eng.GetTradesForBatch(c.Request.Context(), id)),
	})
}

func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrCommitmentNotFound),
		errors.Is(err, domain.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateCommitment),
		errors.Is(err, domain.ErrAlreadyRevealed),
		errors.Is(err, domain.ErrAlreadyMatched):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientStake),
		errors.Is(err, domain.ErrBatchClosed),
		errors.Is(err, domain.ErrHashMismatch),
		errors.Is(err, domain.ErrRevealWindowClosed),
		errors.Is(err, domain.ErrStaleBatch),
		errors.Is(err, domain.ErrInvalidOrderType),
		errors.Is(err, domain.ErrZeroQuantity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func convertOrder(o *domain.Order) dto.Order {
	return dto.Order{
		ID:        o.ID,
		Trader:    o.Trader,
		Side:      dto.Side(o.Side),
		Type:      dto.OrderType(o.Type),
		Price:     o.Price,
		Quantity:  o.Quantity,
		Remaining: o.Remaining,
		BatchID:   o.BatchID,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

func convertOrders(orders []domain.Order) []dto.Order {
	res := make([]dto.Order, len(orders))
	for i, o := range orders {
		res[i] = convertOrder(&o)
	}
	return res
}

func convertTrades(trades []*domain.Trade) []dto.Trade {
	res := make([]dto.Trade, len(trades))
	for i, t := range trades {
		res[i] = dto.Trade{
			ID:        t.ID,
			BatchID:   t.BatchID,
			BuyOrder:  t.BuyOrder,
			SellOrder: t.SellOrder,
			Price:     t.Price,
			Quantity:  t.Quantity,
			Timestamp: TimeToProto(t.Timestamp),
		}
	}
	return res
}

func convertBatch(b *domain.Batch) dto.Batch {
	out := dto.Batch{
		ID:              b.ID,
		State:           string(b.State),
		CommitWindowEnd: b.CommitWindowEnd,
		RevealWindowEnd: b.RevealWindowEnd,
		MatchedVolume:   b.MatchedVolume,
	}
	if b.HasClearing {
		p := b.ClearingPrice
		out.ClearingPrice = &p
	}
	return out
}

func TimeToProto(t time.Time) *timestamppb.Timestamp {
	return timestamppb.New(t)
}

func ValidateOrder(req *dto.SubmitOrderRequest) error {
	switch req.Side {
	case dto.Buy, dto.Sell:
	default:
		return fmt.Errorf("invalid side: %s", req.Side)
	}
	switch req.Type {
	case dto.GTC, dto.IOC, dto.FOK:
	default:
		return fmt.Errorf("invalid order type: %s", req.Type)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("quantity must be > 0")
	}
	if req.Price <= 0 {
		return fmt.Errorf("price must be > 0")
	}
	return nil
}
