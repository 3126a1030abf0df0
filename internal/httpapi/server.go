// Package httpapi exposes a dapp.Session as a small JSON API so a browser
// page or a script can drive the same session the terminal page does.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/therandomchoice/ponzi-cli/internal/chain"
	"github.com/therandomchoice/ponzi-cli/internal/dapp"
)

// Config controls the listener.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string // empty allows any origin
	// RefreshTimeout bounds connect and refresh requests. Transactions are
	// bounded by the wallet's confirmation timeout instead.
	RefreshTimeout time.Duration
}

// Serve runs the API until ctx is done.
func Serve(ctx context.Context, cfg Config, session *dapp.Session, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewRouter(cfg, session, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", cfg.ListenAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// NewRouter builds the gin engine. Exported for tests and embedding.
func NewRouter(cfg Config, session *dapp.Session, logger *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Origin", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{session: session, log: logger, cfg: cfg}
	api := router.Group("/api")
	api.GET("/state", h.handleState)
	api.POST("/connect", h.handleConnect)
	api.POST("/refresh", h.handleRefresh)
	api.POST("/amount", h.handleAmount)
	api.POST("/max/token", h.handleMaxToken)
	api.POST("/max/native", h.handleMaxNative)
	api.POST("/deposit", h.handleDeposit)
	api.POST("/withdraw", h.handleWithdraw)
	api.POST("/withdraw-all", h.handleWithdrawAll)

	return router
}

type handler struct {
	session *dapp.Session
	log     *zap.Logger
	cfg     Config
}

type amountRequest struct {
	Amount *string `json:"amount"`
}

type txResponse struct {
	Hash        string     `json:"hash"`
	BlockNumber uint64     `json:"block_number"`
	GasUsed     uint64     `json:"gas_used"`
	State       dapp.State `json:"state"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *handler) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.State())
}

func (h *handler) handleConnect(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RefreshTimeout)
	defer cancel()
	if err := h.session.Connect(ctx); err != nil {
		h.fail(c, "connect", err)
		return
	}
	c.JSON(http.StatusOK, h.session.State())
}

func (h *handler) handleRefresh(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RefreshTimeout)
	defer cancel()
	if err := h.session.Refresh(ctx); err != nil {
		h.fail(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, h.session.State())
}

func (h *handler) handleAmount(c *gin.Context) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		c.JSON(http.StatusBadRequest, errorBody{Code: dapp.CodeInvalidArgument, Message: `expected JSON body {"amount": "..."}`})
		return
	}
	h.session.SetAmount(*req.Amount)
	c.JSON(http.StatusOK, h.session.State())
}

func (h *handler) handleMaxToken(c *gin.Context) {
	h.session.SetMaxToken()
	c.JSON(http.StatusOK, h.session.State())
}

func (h *handler) handleMaxNative(c *gin.Context) {
	h.session.SetMaxNative()
	c.JSON(http.StatusOK, h.session.State())
}

func (h *handler) handleDeposit(c *gin.Context) {
	amount, ok := h.amount(c)
	if !ok {
		return
	}
	receipt, err := h.session.Deposit(c.Request.Context(), amount)
	h.respondTx(c, dapp.OpDeposit, receipt, err)
}

func (h *handler) handleWithdraw(c *gin.Context) {
	amount, ok := h.amount(c)
	if !ok {
		return
	}
	receipt, err := h.session.Withdraw(c.Request.Context(), amount)
	h.respondTx(c, dapp.OpWithdraw, receipt, err)
}

func (h *handler) handleWithdrawAll(c *gin.Context) {
	receipt, err := h.session.WithdrawAll(c.Request.Context())
	h.respondTx(c, dapp.OpWithdrawAll, receipt, err)
}

// amount reads an optional {"amount"} body, falling back to the session's
// amount field like the page buttons do.
func (h *handler) amount(c *gin.Context) (string, bool) {
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, errorBody{Code: dapp.CodeInvalidArgument, Message: "expected JSON body"})
		return "", false
	}
	if req.Amount != nil {
		return *req.Amount, true
	}
	return h.session.State().Amount, true
}

func (h *handler) respondTx(c *gin.Context, op string, receipt *chain.TxReceipt, err error) {
	if err != nil {
		h.fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, txResponse{
		Hash:        receipt.Hash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
		State:       h.session.State(),
	})
}

func (h *handler) fail(c *gin.Context, op string, err error) {
	code := dapp.Classify(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("op", op), zap.String("code", code), zap.Error(err))
	} else {
		h.log.Info("request rejected", zap.String("op", op), zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, errorBody{Code: code, Message: err.Error()})
}

func statusFor(code string) int {
	switch code {
	case dapp.CodeInvalidArgument:
		return http.StatusBadRequest
	case dapp.CodeConnectionRejected, dapp.CodeActionRejected:
		return http.StatusForbidden
	case dapp.CodeNotConnected, dapp.CodeWrongNetwork, dapp.CodeTxInProgress:
		return http.StatusConflict
	case dapp.CodeInsufficientFunds, dapp.CodeCallException, dapp.CodeUnpredictableGasLimit:
		return http.StatusUnprocessableEntity
	case dapp.CodeNoProvider:
		return http.StatusServiceUnavailable
	case dapp.CodeNetworkError:
		return http.StatusBadGateway
	case dapp.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
