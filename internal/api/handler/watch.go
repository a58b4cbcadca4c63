package handler

import (
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sergiomvj/faceblog/internal/api/request"
	"github.com/sergiomvj/faceblog/internal/api/response"
	"github.com/sergiomvj/faceblog/internal/core"
	"github.com/sergiomvj/faceblog/internal/model"
)

// Watch streams job snapshots over a WebSocket until the job reaches a
// terminal status or the client disconnects.
type Watch struct {
	svc      *core.ProvisionService
	interval time.Duration
}

func NewWatch(svc *core.ProvisionService) *Watch {
	return &Watch{svc: svc, interval: time.Second}
}

// Job godoc
//
//	@Summary		Stream provisioning job progress
//	@Tags			Provisioning
//	@Security		ApiKeyAuth
//	@Param			id path string true "Job ID"
//	@Router			/provisioning/jobs/{id}/watch [get]
func (h *Watch) Job(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin differs from Host when proxied through admin-ui.
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastUpdate time.Time
	for {
		job, err := h.svc.Get(ctx, id)
		if err != nil {
			ws.Close(websocket.StatusGoingAway, "job no longer exists")
			return
		}

		// Only push when something changed.
		if job.UpdatedAt.After(lastUpdate) {
			if err := wsjson.Write(ctx, ws, job); err != nil {
				return
			}
			lastUpdate = job.UpdatedAt
		}

		if model.IsTerminal(job.Status) {
			ws.Close(websocket.StatusNormalClosure, "job finished")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
