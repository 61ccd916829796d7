// components/contact/handlers.go
package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/form"
	"github.com/yanizio/neurion/internal/logger"
	"github.com/yanizio/neurion/internal/session"
	"github.com/yanizio/neurion/internal/submission"
)

// sessionResponse is returned when a session is opened.
type sessionResponse struct {
	ID   string       `json:"id"`
	View session.View `json:"view"`
}

// submitResponse pairs the outcome with the resulting view.
type submitResponse struct {
	Outcome submission.Outcome `json:"outcome"`
	View    *session.View      `json:"view,omitempty"`
}

type editRequest struct {
	Value string `json:"value"`
}

/*────────────────────────────── Static ─────────────────────────────────────*/

func (c *Component) handleOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]form.Option{
		"service_interest": form.ServiceOptions,
		"budget":           form.BudgetOptions,
	})
}

func (c *Component) handleToken(w http.ResponseWriter, r *http.Request) {
	tok, err := c.csrf.Generate()
	if err != nil {
		c.logger(r).Errorw("csrf generate", "err", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": tok})
}

/*──────────────────────────── Sessions ─────────────────────────────────────*/

func (c *Component) handleCreate(w http.ResponseWriter, r *http.Request) {
	id, ctl := c.sessions.Create()
	session.SetCookie(w, r, id, c.cookieTTL)
	c.logger(r).Debugw("session opened", "session", id)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id, View: ctl.View()})
}

func (c *Component) handleCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := session.IDFromCookie(r)
	if !ok {
		writeError(w, http.StatusNotFound, "no session")
		return
	}
	ctl, err := c.sessions.Get(id)
	if err != nil {
		session.ClearCookie(w, r)
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{ID: id, View: ctl.View()})
}

func (c *Component) handleView(w http.ResponseWriter, r *http.Request) {
	ctl, ok := c.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ctl.View())
}

func (c *Component) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := c.sessions.Get(id); err != nil {
		c.fail(w, r, err)
		return
	}
	c.sessions.Delete(id)
	session.ClearCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (c *Component) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctl, ok := c.controller(w, r)
	if !ok {
		return
	}
	field, err := form.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	var req editRequest
	if !decode(w, r, &req) {
		return
	}
	if err := ctl.Edit(field, req.Value); err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctl.View())
}

func (c *Component) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctl, ok := c.controller(w, r)
	if !ok {
		return
	}
	out, err := ctl.Submit(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.logger(r).Infow("contact submit", "session", chi.URLParam(r, "id"), "kind", out.Kind)
	v := ctl.View()
	writeJSON(w, http.StatusOK, submitResponse{Outcome: out, View: &v})
}

func (c *Component) handleReset(w http.ResponseWriter, r *http.Request) {
	ctl, ok := c.controller(w, r)
	if !ok {
		return
	}
	if err := ctl.Reset(); err != nil {
		c.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctl.View())
}

/*──────────────────────────── One-shot ─────────────────────────────────────*/

// handleOneShot accepts a whole snapshot in one request.  It runs through a
// throwaway controller so sanitising and validation match the session flow.
func (c *Component) handleOneShot(w http.ResponseWriter, r *http.Request) {
	var snap form.Snapshot
	if !decode(w, r, &snap) {
		return
	}

	ctl := session.NewController(c.client, session.Options{})
	defer ctl.Close()
	for _, f := range form.Fields {
		if err := ctl.Edit(f, snap.Get(f)); err != nil {
			c.fail(w, r, err)
			return
		}
	}
	out, err := ctl.Submit(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.logger(r).Infow("contact submit", "oneshot", true, "kind", out.Kind)

	resp := submitResponse{Outcome: out}
	if !out.Success {
		v := ctl.View()
		resp.View = &v
	}
	writeJSON(w, oneShotStatus(out.Kind), resp)
}

func oneShotStatus(k submission.Kind) int {
	switch k {
	case submission.KindSuccess:
		return http.StatusCreated
	case submission.KindInvalid:
		return http.StatusUnprocessableEntity
	case submission.KindDuplicate:
		return http.StatusConflict
	case submission.KindOffline:
		return http.StatusServiceUnavailable
	case submission.KindPermission:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

/*───────────────────────────── Helpers ─────────────────────────────────────*/

func (c *Component) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	ctl, err := c.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		c.fail(w, r, err)
		return nil, false
	}
	return ctl, true
}

func (c *Component) logger(r *http.Request) *zap.SugaredLogger {
	if l := logger.FromContext(r.Context()); l != nil {
		return l
	}
	return c.log
}

// fail maps controller and manager errors to HTTP statuses.
func (c *Component) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, form.ErrUnknownField):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		c.logger(r).Errorw("contact handler", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
