// Package server exposes the claim intake API over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"

	"github.com/clearhealth/claimflow/internal/common"
	"github.com/clearhealth/claimflow/internal/intake"
	"github.com/clearhealth/claimflow/internal/model"
	"github.com/clearhealth/claimflow/internal/service"
)

// Server is the claimflow HTTP API.
type Server struct {
	intake  *intake.Service
	storage service.Storage
	srv     *fasthttp.Server
	addr    string
}

// New creates a server listening on addr.
func New(addr string, intakeSvc *intake.Service, storage service.Storage) *Server {
	s := &Server{
		intake:  intakeSvc,
		storage: storage,
		addr:    addr,
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "claimflow",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	slog.Info("HTTP server listening", "addr", s.addr)
	return s.srv.ListenAndServe(s.addr)
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handler routes one request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())

	switch {
	case path == "/healthz":
		s.handleHealth(ctx)
	case path == "/api/claims" && ctx.IsPost():
		s.handleSubmitClaim(ctx)
	case strings.HasPrefix(path, "/api/claims/") && ctx.IsGet():
		s.handleGetClaim(ctx, strings.TrimPrefix(path, "/api/claims/"))
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, apiResponse{
			Status:  false,
			Message: "Not found",
		})
	}
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString("ok")
}

func (s *Server) handleSubmitClaim(ctx *fasthttp.RequestCtx) {
	var sub intake.ClaimSubmission
	if err := json.Unmarshal(ctx.PostBody(), &sub); err != nil {
		writeJSON(ctx, fasthttp.StatusBadRequest, apiResponse{
			Status:  false,
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	claim, err := s.intake.Submit(ctx, &sub)
	if err != nil {
		var verrs common.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(ctx, fasthttp.StatusUnprocessableEntity, apiResponse{
				Status:  false,
				Message: "Invalid input",
				Error:   verrs,
			})
			return
		}
		common.LogError(err, "Claim submission failed", common.Fields{})
		writeJSON(ctx, fasthttp.StatusInternalServerError, apiResponse{
			Status:  false,
			Message: "Claim could not be submitted",
		})
		return
	}

	writeJSON(ctx, fasthttp.StatusCreated, apiResponse{
		Status:  true,
		Message: "Claim submitted successfully",
		Data:    claimPayload(claim),
	})
}

func (s *Server) handleGetClaim(ctx *fasthttp.RequestCtx, id string) {
	claim, err := s.storage.GetClaimByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			writeJSON(ctx, fasthttp.StatusNotFound, apiResponse{
				Status:  false,
				Message: "Claim not found",
			})
			return
		}
		common.LogError(err, "Claim lookup failed", common.Fields{"claim_id": id})
		writeJSON(ctx, fasthttp.StatusInternalServerError, apiResponse{
			Status:  false,
			Message: "Claim could not be retrieved",
		})
		return
	}

	writeJSON(ctx, fasthttp.StatusOK, apiResponse{
		Status: true,
		Data:   claimPayload(claim),
	})
}

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Status  bool   `json:"status"`
}

// claimJSON is the wire form of a claim.
type claimJSON struct {
	ID                 string           `json:"id"`
	InsurerCode        string           `json:"insurer_code"`
	ProviderName       string           `json:"provider_name"`
	EncounterDate      string           `json:"encounter_date"`
	Specialty          string           `json:"specialty"`
	PriorityLevel      int              `json:"priority_level"`
	TotalAmount        string           `json:"total_amount"`
	BaseProcessingCost string           `json:"base_processing_cost"`
	Items              []model.LineItem `json:"items"`
	BatchID            string           `json:"batch_id,omitempty"`
	BatchDate          string           `json:"batch_date,omitempty"`
	IsProcessed        bool             `json:"is_processed"`
	CreatedAt          time.Time        `json:"created_at"`
}

func claimPayload(claim *model.Claim) claimJSON {
	out := claimJSON{
		ID:                 claim.ID,
		InsurerCode:        claim.InsurerCode,
		ProviderName:       claim.ProviderName,
		EncounterDate:      claim.EncounterDate.Format("2006-01-02"),
		Specialty:          string(claim.Specialty),
		PriorityLevel:      claim.PriorityLevel,
		TotalAmount:        claim.TotalAmount.String(),
		BaseProcessingCost: claim.BaseProcessingCost.String(),
		Items:              claim.Items,
		BatchID:            claim.BatchID,
		IsProcessed:        claim.IsProcessed,
		CreatedAt:          claim.CreatedAt,
	}
	if claim.BatchDate != nil {
		out.BatchDate = claim.BatchDate.Format("2006-01-02")
	}
	return out
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload apiResponse) {
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
