package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sergiomvj/faceblog/internal/api/request"
	"github.com/sergiomvj/faceblog/internal/api/response"
	"github.com/sergiomvj/faceblog/internal/engine"
	"github.com/sergiomvj/faceblog/internal/model"
)

// Callback ingests completion notifications from the deploy platform and the
// domain verifier. Both endpoints acknowledge every well-formed payload,
// including ones whose reference matches no live job, so external systems
// never retry deliveries that can no longer be applied.
type Callback struct {
	engine *engine.Engine
}

func NewCallback(eng *engine.Engine) *Callback {
	return &Callback{engine: eng}
}

// DeployResult godoc
//
//	@Summary		Ingest a deploy completion callback
//	@Tags			Callbacks
//	@Param			body body request.DeployResult true "Deploy outcome"
//	@Success		200 {object} map[string]bool
//	@Failure		400 {object} response.ErrorResponse
//	@Router			/provisioning/callbacks/deploy [post]
func (h *Callback) DeployResult(w http.ResponseWriter, r *http.Request) {
	var req request.DeployResult
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.engine.HandleDeployResult(r.Context(), model.DeployResult{
		ExternalRef: req.ExternalRef,
		Status:      req.Status,
		URL:         req.URL,
		Error:       req.Error,
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("external_ref", req.ExternalRef).Msg("deploy callback failed")
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// DomainVerified godoc
//
//	@Summary		Ingest a domain verification callback
//	@Tags			Callbacks
//	@Param			body body request.DomainVerification true "Verification outcome"
//	@Success		200 {object} map[string]bool
//	@Failure		400 {object} response.ErrorResponse
//	@Router			/provisioning/callbacks/domain-verification [post]
func (h *Callback) DomainVerified(w http.ResponseWriter, r *http.Request) {
	var req request.DomainVerification
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.engine.HandleDomainVerified(r.Context(), model.DomainVerification{
		Domain:    req.Domain,
		Status:    req.Status,
		TenantRef: req.TenantRef,
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("domain", req.Domain).Msg("domain callback failed")
	}

	response.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
