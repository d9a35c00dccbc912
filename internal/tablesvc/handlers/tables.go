package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/avvvet/buffet-bingo/internal/missions"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
)

const maxPhotoBytes = 8 << 20

type tableResponse struct {
	Table    *models.Table `json:"table"`
	ShareURL string        `json:"share_url"`
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req service.CreateTableRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	table, err := h.svc.CreateTable(r.Context(), p, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "table created", tableResponse{
		Table:    table,
		ShareURL: service.ShareLink(h.baseURL, table.ID),
	})
}

func (h *Handler) JoinTable(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req service.JoinRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	table, err := h.svc.JoinTable(r.Context(), p, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "joined table", tableResponse{
		Table:    table,
		ShareURL: service.ShareLink(h.baseURL, table.ID),
	})
}

func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	table, players, err := h.svc.Table(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "table", scoreboard.Project(id, table, players))
}

func (h *Handler) CloseTable(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.CloseTable(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "table closed", nil)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.DeleteTable(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "table deleted", nil)
}

func (h *Handler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	err = h.svc.DeletePlayer(r.Context(), p, chi.URLParam(r, "id"), chi.URLParam(r, "uid"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "player removed", nil)
}

type scoreResponse struct {
	Player  *models.Player `json:"player"`
	Verdict string         `json:"verdict"`
}

// SubmitScore takes a multipart form with the four metrics, optional badges
// and the plate photo.
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var breakdown models.Breakdown
	fields := []struct {
		name string
		dst  *int
	}{
		{"taste", &breakdown.Taste},
		{"cohesion", &breakdown.Cohesion},
		{"regret", &breakdown.Regret},
		{"waste", &breakdown.Waste},
	}
	for _, f := range fields {
		v, err := strconv.Atoi(r.FormValue(f.name))
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: %s must be a whole number", service.ErrInvalidScore, f.name))
			return
		}
		*f.dst = v
	}

	sub := service.ScoreSubmission{Breakdown: breakdown, Badges: formBadges(r)}

	file, header, err := r.FormFile("photo")
	if err == nil {
		defer file.Close()
		sub.Photo, err = io.ReadAll(io.LimitReader(file, maxPhotoBytes))
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: read photo: %v", errBadRequest, err))
			return
		}
		sub.ContentType = header.Header.Get("Content-Type")
	}

	player, err := h.svc.SubmitScore(r.Context(), p, chi.URLParam(r, "id"), sub)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "score submitted", scoreResponse{
		Player:  player,
		Verdict: missions.Verdict(player.Score),
	})
}

// formBadges accepts repeated "badges" fields or one comma separated value.
func formBadges(r *http.Request) []string {
	var out []string
	for _, v := range r.MultipartForm.Value["badges"] {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				out = append(out, b)
			}
		}
	}
	return out
}

func (h *Handler) AddToHallOfFame(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.svc.AddToHallOfFame(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "added to hall of fame", entry)
}

func (h *Handler) RemoveFromHallOfFame(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.RemoveFromHallOfFame(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "removed from hall of fame", nil)
}

func (h *Handler) ListHallOfFame(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			h.fail(w, r, fmt.Errorf("%w: invalid limit", errBadRequest))
			return
		}
		limit = n
	}
	entries, err := h.svc.ListHallOfFame(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "hall of fame", entries)
}

func (h *Handler) MyTables(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tables, err := h.svc.MyTables(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "my tables", tables)
}

func (h *Handler) ShareTable(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "share link", map[string]string{
		"url": service.ShareLink(h.baseURL, chi.URLParam(r, "id")),
	})
}

// TableQR renders the share link as a PNG download named after the table.
func (h *Handler) TableQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	table, _, err := h.svc.Table(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	png, err := qrcode.Encode(service.ShareLink(h.baseURL, id), qrcode.Medium, 320)
	if err != nil {
		h.fail(w, r, fmt.Errorf("encode qr: %w", err))
		return
	}

	name := slug.Make(table.Name)
	if name == "" {
		name = "table-" + table.Code()
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-qr.png"`, strings.TrimSuffix(name, "-")))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		log.Errorf("[Handler.TableQR] write: %s", err)
	}
}

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "badges", missions.Badges)
}

func (h *Handler) RandomMission(w http.ResponseWriter, r *http.Request) {
	h.missionsMu.Lock()
	mission := h.missions.Next()
	h.missionsMu.Unlock()
	h.ok(w, http.StatusOK, "mission", map[string]string{"mission": mission})
}

func (h *Handler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	data, contentType, ok := h.media.Get(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(data); err != nil {
		log.Errorf("[Handler.ServeMedia] write: %s", err)
	}
}
