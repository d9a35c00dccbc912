package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/missions"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
)

var errBadRequest = errors.New("bad request")

// MediaFiles serves stored photos directly; only the in-memory media store
// provides it.
type MediaFiles interface {
	Get(key string) ([]byte, string, bool)
}

type Deps struct {
	Service       *service.TableService
	Identity      *identity.Provider
	Source        scoreboard.Source
	Media         MediaFiles
	PublicBaseURL string
	ToastDuration time.Duration
	Port          string
}

type Handler struct {
	upgrader websocket.Upgrader
	ws       *Ws
	svc      *service.TableService
	ident    *identity.Provider
	source   scoreboard.Source
	media    MediaFiles
	baseURL  string
	toast    time.Duration
	port     string

	missionsMu sync.Mutex
	missions   *missions.Generator
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ws:       NewWs(),
		svc:      d.Service,
		ident:    d.Identity,
		source:   d.Source,
		media:    d.Media,
		baseURL:  d.PublicBaseURL,
		toast:    d.ToastDuration,
		port:     d.Port,
		missions: missions.NewGenerator(rand.NewSource(time.Now().UnixNano())),
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

// fail maps domain errors onto HTTP status codes. Unknown errors are logged
// and reported as 500 without detail.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Errorf("[Handler] %s %s: %s", r.Method, r.URL.Path, err)
		msg = "internal error"
	}
	h.CreateResponse(w, Response{Message: http.StatusText(code), Code: code, Error: msg})
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotReady), errors.Is(err, identity.ErrNoPrincipal):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, service.ErrTableNotFound), errors.Is(err, service.ErrNotFound),
		errors.Is(err, identity.ErrUnknownAccount), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNameTaken), errors.Is(err, service.ErrConflictDetected),
		errors.Is(err, identity.ErrCredentialInUse):
		return http.StatusConflict
	case errors.Is(err, service.ErrTableClosed):
		return http.StatusLocked
	case errors.Is(err, service.ErrCodeExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrMediaUploadFailed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrInvalidScore), errors.Is(err, service.ErrPhotoRequired),
		errors.Is(err, identity.ErrBadCredential), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json body: %v", errBadRequest, err)
	}
	return nil
}

func principal(r *http.Request) (models.Principal, error) {
	return identity.PrincipalFromContext(r.Context())
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "table service is running at port "+h.port, map[string]int{
		"sockets": h.ws.Count(),
	})
}
