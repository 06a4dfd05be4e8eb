package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"receiptd/internal/domain"
	"receiptd/internal/infra/keys"

	"github.com/gin-gonic/gin"
)

const maxTokenBytes = 16 << 10

const (
	endpointVerify     = "verify"
	endpointDiagnostic = "diagnostic"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type issueRequest struct {
	Flavour string `json:"flavour"`
}

type issueResponse struct {
	Receipt        string `json:"receipt"`
	InstallationID int64  `json:"installation_id"`
	Flavour        string `json:"flavour"`
	ExpiresAt      string `json:"expires_at"`
}

type installRequest struct {
	UserID int64 `json:"user_id"`
}

type installResponse struct {
	InstallationID int64  `json:"installation_id"`
	ProductID      int64  `json:"product_id"`
	DirectedID     string `json:"directed_id"`
	PremiumType    string `json:"premium_type"`
	Receipt        string `json:"receipt"`
}

func (s *Server) handleHealth(c *gin.Context) {
	dbMode := "no-db"
	if s.store != nil && s.store.DB != nil {
		dbMode = "db"
	}
	keysState, status, code := "ok", "ok", http.StatusOK
	if s.keys == nil {
		keysState, status, code = "error", "degraded", http.StatusServiceUnavailable
	} else if _, err := s.keys.Material(c.Request.Context()); err != nil {
		keysState, status, code = "error", "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "mode": dbMode, "signing": s.signingMode, "keys": keysState})
}

func (s *Server) handleKeys(c *gin.Context) {
	if s.keys == nil {
		writeError(c, domain.ErrKeyLoad)
		return
	}
	material, err := s.keys.Material(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	set := keys.PublicKeySet(material.Verification)
	set.Issuer = material.Issuer
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, set)
}

func (s *Server) handleVerify(c *gin.Context) {
	s.verify(c, endpointVerify)
}

func (s *Server) handleDiagnosticVerify(c *gin.Context) {
	s.verify(c, endpointDiagnostic)
}

func (s *Server) verify(c *gin.Context, endpoint string) {
	rawID := c.Param("product_id")
	if !s.enforceRateLimit(c, endpoint, rawID) {
		return
	}
	if s.verifyUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "verification not configured")
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTokenBytes))
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "unable to read body")
		return
	}
	productID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		s.respondVerify(c, endpoint, rawID, domain.VerifyResult{Status: domain.VerifyStatusInvalid, Reason: "bad product id"})
		return
	}
	token := strings.TrimSpace(string(body))

	var result domain.VerifyResult
	if endpoint == endpointDiagnostic {
		result, err = s.verifyUC.ExecuteDiagnostic(c.Request.Context(), productID, token)
	} else {
		result, err = s.verifyUC.Execute(c.Request.Context(), productID, token)
	}
	if err != nil {
		s.metrics.ObserveVerification(endpoint, "error")
		s.log.Error("receipt verification failed", "endpoint", endpoint, "product_id", productID, "error", err)
		writeError(c, err)
		return
	}
	s.respondVerify(c, endpoint, rawID, result)
}

func (s *Server) respondVerify(c *gin.Context, endpoint, productID string, result domain.VerifyResult) {
	s.metrics.ObserveVerification(endpoint, string(result.Status))
	s.log.Debug("receipt verified", "endpoint", endpoint, "product_id", productID, "status", result.Status, "reason", result.Reason)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleIssue(c *gin.Context) {
	if s.issueUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "issuance not configured")
		return
	}
	installationID, err := strconv.ParseInt(c.Param("installation_id"), 10, 64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "installation_id must be an integer")
		return
	}
	var req issueRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
			return
		}
	}

	issued, err := s.issueUC.Execute(c.Request.Context(), installationID, req.Flavour)
	if err != nil {
		s.metrics.ObserveIssuance(flavourLabel(req.Flavour), "error")
		s.logFault("receipt issuance failed", err, "installation_id", installationID, "flavour", req.Flavour)
		writeError(c, err)
		return
	}
	flavour, _ := issued.Claims.Flavour()
	s.metrics.ObserveIssuance(string(flavour), "ok")
	s.log.Info("receipt issued", "installation_id", installationID, "flavour", flavour)
	c.JSON(http.StatusCreated, issueResponse{
		Receipt:        issued.Receipt,
		InstallationID: installationID,
		Flavour:        string(flavour),
		ExpiresAt:      issued.Claims.ExpiresAt().Format(time.RFC3339),
	})
}

func (s *Server) handleInstall(c *gin.Context) {
	if s.installUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "installation not configured")
		return
	}
	productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "product_id must be an integer")
		return
	}
	var req installRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required")
		return
	}

	result, err := s.installUC.Execute(c.Request.Context(), productID, req.UserID)
	if err != nil {
		s.metrics.ObserveIssuance(string(domain.FlavourDefault), "error")
		s.logFault("installation failed", err, "product_id", productID, "user_id", req.UserID)
		writeError(c, err)
		return
	}
	s.metrics.ObserveIssuance(string(domain.FlavourDefault), "ok")
	s.log.Info("installation recorded", "product_id", productID, "installation_id", result.Installation.ID)
	c.JSON(http.StatusCreated, installResponse{
		InstallationID: result.Installation.ID,
		ProductID:      result.Installation.ProductID,
		DirectedID:     result.Installation.DirectedID,
		PremiumType:    string(result.Installation.PremiumType),
		Receipt:        result.Receipt,
	})
}

// logFault keeps caller mistakes at warn and everything else at error.
func (s *Server) logFault(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.Is(err, domain.ErrInvalidFlavour) || errors.Is(err, domain.ErrNotFound) {
		s.log.Warn(msg, args...)
		return
	}
	s.log.Error(msg, args...)
}

func flavourLabel(value string) string {
	flavour, err := domain.ParseFlavour(value)
	if err != nil {
		return "unknown"
	}
	return string(flavour)
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrKeyLoad):
		status, code = http.StatusServiceUnavailable, "KEY_LOAD_FAILED"
	case errors.Is(err, domain.ErrInvalidFlavour):
		status, code = http.StatusBadRequest, "INVALID_FLAVOUR"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrSigning):
		status, code = http.StatusBadGateway, "SIGNING_FAILED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeErrorCode(c, status, code, message)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
