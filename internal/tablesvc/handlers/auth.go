package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
)

type session struct {
	Token     string           `json:"token"`
	Principal models.Principal `json:"principal"`
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, code int, p models.Principal) {
	token, err := h.ident.Token(p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, code, "signed in", session{Token: token, Principal: p})
}

func (h *Handler) SignInAnonymous(w http.ResponseWriter, r *http.Request) {
	p, err := h.ident.SignInAnonymous(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issue(w, r, http.StatusCreated, p)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var cred identity.Credential
	if err := decode(r, &cred); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.ident.SignInPersistent(r.Context(), cred)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issue(w, r, http.StatusOK, p)
}

// LinkCredential attaches a persistent credential to the caller in place.
// A credential owned by another account is reported as 409 with the
// existing id; the client then runs a confirmed migration.
func (h *Handler) LinkCredential(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var cred identity.Credential
	if err := decode(r, &cred); err != nil {
		h.fail(w, r, err)
		return
	}

	linked, err := h.ident.AttachPersistentCredential(r.Context(), p, cred)
	var conflict *identity.ConflictError
	if errors.As(err, &conflict) {
		h.CreateResponse(w, Response{
			Message: "credential belongs to another account",
			Code:    http.StatusConflict,
			Data:    map[string]string{"existing_id": conflict.ExistingID},
			Error:   service.ErrConflictDetected.Error(),
		})
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.issue(w, r, http.StatusOK, linked)
}

type migrationRequest struct {
	TableID    string              `json:"table_id"`
	Credential identity.Credential `json:"credential"`
	Confirmed  bool                `json:"confirmed"`
}

type migrationResponse struct {
	Migration *service.Migration `json:"migration"`
	Token     string             `json:"token,omitempty"`
}

func (h *Handler) MigrateIdentity(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req migrationRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	m, err := h.svc.MigrateIdentity(r.Context(), service.MigrationRequest{
		Principal:  p,
		TableID:    req.TableID,
		Credential: req.Credential,
		Confirmed:  req.Confirmed,
	})
	if errors.Is(err, service.ErrConflictDetected) {
		h.CreateResponse(w, Response{
			Message: "confirm to move your plate into the existing account",
			Code:    http.StatusConflict,
			Data:    migrationResponse{Migration: m},
			Error:   err.Error(),
		})
		return
	}
	if err != nil && (m == nil || m.To.ID == "") {
		h.fail(w, r, err)
		return
	}

	// once the caller has a persistent principal the new token goes back
	// even when a later step failed
	rsp := migrationResponse{Migration: m}
	token, tokenErr := h.ident.Token(m.To)
	if tokenErr != nil {
		h.fail(w, r, tokenErr)
		return
	}
	rsp.Token = token

	if err != nil {
		code := StatusFor(err)
		message := "account linked, plate not inducted"
		if m.State == service.StateMigrationFailed {
			code = http.StatusInternalServerError
			message = "migration incomplete, retry to finish moving your plate"
		}
		if code == http.StatusInternalServerError {
			log.Errorf("[Handler.MigrateIdentity] %s on %s: %s", p.ID, req.TableID, err)
		}
		h.CreateResponse(w, Response{
			Message: message,
			Code:    code,
			Data:    rsp,
			Error:   err.Error(),
		})
		return
	}
	h.ok(w, http.StatusOK, "migration "+m.State.String(), rsp)
}
