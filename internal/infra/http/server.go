package http

import (
	"log/slog"
	"net/http"
	"time"

	"receiptd/internal/config"
	"receiptd/internal/domain"
	"receiptd/internal/infra/crypto"
	"receiptd/internal/infra/db"
	"receiptd/internal/infra/signer"
	"receiptd/internal/logging"
	"receiptd/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine
	log   *slog.Logger

	issueUC   *usecase.IssueReceipt
	verifyUC  *usecase.VerifyReceipt
	installUC *usecase.InstallProduct
	keys      usecase.KeyProvider

	signingMode string
	adminAPIKey string
	metrics     *Metrics

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// NewServer wires the use cases against the database store and key manager.
func NewServer(cfg config.Config, store *db.Store, keys usecase.KeyProvider, limiter domain.RateLimiter, metrics *Metrics, log *slog.Logger) (*Server, error) {
	sig, err := signer.New(cfg, keys)
	if err != nil {
		return nil, err
	}
	builder := &usecase.ReceiptBuilder{
		Installations: store.Installations(),
		Products:      store.Products(),
		Links:         cfg,
		Issuer:        cfg.ReceiptIssuer,
		TTL:           cfg.ReceiptTTL,
		DiagnosticTTL: cfg.ReceiptDiagnosticTTL,
	}
	deps := ServerDeps{
		Issue: &usecase.IssueReceipt{Keys: keys, Builder: builder, Signer: sig},
		Verify: &usecase.VerifyReceipt{
			Keys:          keys,
			Tokens:        &crypto.Service{},
			Installations: store.Installations(),
			Products:      store.Products(),
			Purchases:     store.Purchases(),
			Builder:       builder,
			Signer:        sig,
		},
		Install: &usecase.InstallProduct{
			Keys:          keys,
			Products:      store.Products(),
			Installations: store.Installations(),
			Builder:       builder,
			Signer:        sig,
		},
		Keys:        keys,
		SigningMode: sig.Mode(),
		AdminAPIKey: cfg.AdminAPIKey,
		RateLimiter: limiter,
		Metrics:     metrics,
		Logger:      log,
	}
	s := NewServerWithDeps(cfg, deps)
	s.store = store
	return s, nil
}

type ServerDeps struct {
	Issue       *usecase.IssueReceipt
	Verify      *usecase.VerifyReceipt
	Install     *usecase.InstallProduct
	Keys        usecase.KeyProvider
	SigningMode string
	AdminAPIKey string
	RateLimiter domain.RateLimiter
	Metrics     *Metrics
	Logger      *slog.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:         cfg,
		r:           r,
		log:         deps.Logger,
		issueUC:     deps.Issue,
		verifyUC:    deps.Verify,
		installUC:   deps.Install,
		keys:        deps.Keys,
		signingMode: deps.SigningMode,
		adminAPIKey: deps.AdminAPIKey,
		metrics:     deps.Metrics,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.signingMode == "" {
		s.signingMode = cfg.SigningMode
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initRateLimit(limiter domain.RateLimiter) {
	s.rateLimiter = limiter
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)
	s.r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.r.Group("/v1")
	{
		v1.GET("/receipts/keys", s.handleKeys)

		v1.POST("/installations/:installation_id/receipts", s.requireAdmin, s.handleIssue)
		v1.POST("/products/:product_id/installations", s.requireAdmin, s.handleInstall)
	}

	// Called cross-origin by app runtimes; answers must never be cached.
	public := v1.Group("/receipts", corsMiddleware(), noCache())
	{
		public.POST("/verify/:product_id", s.handleVerify)
		public.OPTIONS("/verify/:product_id", handlePreflight)
		public.POST("/diagnostic/verify/:product_id", s.handleDiagnosticVerify)
		public.OPTIONS("/diagnostic/verify/:product_id", handlePreflight)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

// Handler exposes the router for an http.Server owned by the caller.
func (s *Server) Handler() http.Handler {
	return s.r
}
