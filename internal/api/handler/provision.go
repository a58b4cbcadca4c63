package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sergiomvj/faceblog/internal/api/request"
	"github.com/sergiomvj/faceblog/internal/api/response"
	"github.com/sergiomvj/faceblog/internal/core"
	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/model"
)

type Provision struct {
	svc             *core.ProvisionService
	retentionWindow time.Duration
}

func NewProvision(svc *core.ProvisionService, retentionWindow time.Duration) *Provision {
	return &Provision{svc: svc, retentionWindow: retentionWindow}
}

func specFromRequest(req request.ProvisionTenant) model.BlogSpec {
	return model.BlogSpec{
		BlogName:     req.BlogName,
		Subdomain:    req.Subdomain,
		CustomDomain: req.CustomDomain,
		OwnerEmail:   req.OwnerEmail,
		OwnerName:    req.OwnerName,
		CompanyName:  req.CompanyName,
		Niche:        req.Niche,
		Theme:        req.Theme,
		PrimaryColor: req.PrimaryColor,
		Template:     req.Template,
	}
}

// subdomainViolation reports whether a validation error includes a failed
// subdomain rule, so the handler can attach the stable error code.
func subdomainViolation(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == "subdomain" {
			return true
		}
	}
	return false
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrSubdomainTaken):
		response.WriteCodedError(w, http.StatusConflict, response.CodeSubdomainExists, "subdomain is already taken")
	case errors.Is(err, core.ErrUnknownTemplate):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// Submit godoc
//
//	@Summary		Submit a tenant provisioning job
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			body body request.ProvisionTenant true "Blog spec"
//	@Success		202 {object} model.ProvisioningJob
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/provisioning/jobs [post]
func (h *Provision) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.ProvisionTenant
	if err := request.Decode(r, &req); err != nil {
		if subdomainViolation(err) {
			response.WriteCodedError(w, http.StatusBadRequest, response.CodeInvalidSubdomain, err.Error())
			return
		}
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.Submit(r.Context(), specFromRequest(req))
	if err != nil {
		writeSubmitError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, job)
}

// Bulk godoc
//
//	@Summary		Submit up to ten provisioning jobs at once
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			body body request.ProvisionBulk true "Blog specs"
//	@Success		202 {object} core.BulkResult
//	@Failure		400 {object} response.ErrorResponse
//	@Router			/provisioning/jobs/bulk [post]
func (h *Provision) Bulk(w http.ResponseWriter, r *http.Request) {
	var req request.ProvisionBulk
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Specs) > core.MaxBulkSpecs {
		response.WriteError(w, http.StatusBadRequest, core.ErrBulkLimit.Error())
		return
	}

	// Specs are validated one by one so a bad spec fails alone instead of
	// rejecting its siblings.
	result := &core.BulkResult{TotalRequested: len(req.Specs)}
	var specs []model.BlogSpec
	for _, item := range req.Specs {
		if err := request.ValidStruct(item); err != nil {
			result.Failed = append(result.Failed, core.BulkFailed{
				Subdomain: item.Subdomain,
				Error:     err.Error(),
			})
			continue
		}
		specs = append(specs, specFromRequest(item))
	}

	submitted, err := h.svc.SubmitBulk(r.Context(), specs)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result.Successful = submitted.Successful
	result.Failed = append(result.Failed, submitted.Failed...)
	result.TotalStarted = len(result.Successful)
	result.TotalFailed = len(result.Failed)

	response.WriteJSON(w, http.StatusAccepted, result)
}

// Get godoc
//
//	@Summary		Get a provisioning job
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			id path string true "Job ID"
//	@Success		200 {object} model.ProvisioningJob
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/provisioning/jobs/{id} [get]
func (h *Provision) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, job)
}

// List godoc
//
//	@Summary		List provisioning jobs
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			status query string false "Filter by status"
//	@Param			tenant_ref query string false "Filter by tenant reference"
//	@Success		200 {array} model.ProvisioningJob
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/provisioning/jobs [get]
func (h *Provision) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), r.URL.Query().Get("tenant_ref"))
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, jobs)
}

// Delete godoc
//
//	@Summary		Cancel or delete a provisioning job
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			id path string true "Job ID"
//	@Param			body body request.DeleteJob true "Confirmation token (must equal the job ID)"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/provisioning/jobs/{id} [delete]
func (h *Provision) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.DeleteJob
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch err := h.svc.Cancel(r.Context(), id, req.Confirm); {
	case errors.Is(err, core.ErrConfirmToken):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobstore.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case err != nil:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// Cleanup godoc
//
//	@Summary		Delete finished jobs older than the retention window
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			body body request.Cleanup false "Optional window override"
//	@Success		200 {object} map[string]int
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/provisioning/cleanup [post]
func (h *Provision) Cleanup(w http.ResponseWriter, r *http.Request) {
	window := h.retentionWindow

	if r.ContentLength > 0 {
		var req request.Cleanup
		if err := request.Decode(r, &req); err != nil {
			response.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.OlderThanHours > 0 {
			window = time.Duration(req.OlderThanHours) * time.Hour
		}
	}

	cleaned, remaining, err := h.svc.Cleanup(r.Context(), window)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]int{
		"cleaned_count":   cleaned,
		"remaining_count": remaining,
	})
}
