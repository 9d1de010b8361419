package bottest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxUploadMemory = 32 << 20

// Transport is the in-memory substitute for the Bot API server. It
// implements tgbotapi.HTTPClient: every request is answered with a
// synthesized result and recorded in the store.
type Transport struct {
	store   *Store
	token   string
	bot     tgbotapi.User
	clock   func() time.Time
	rnd     *randomizer
	logger  *slog.Logger
	metrics *Metrics
	router  chi.Router

	mu         sync.Mutex
	responseID *Counter
	dice       []int
	commands   []tgbotapi.BotCommand
}

// NewTransport creates a transport recording into store. Token, bot
// identity, clock, random source and logger come from options.
func NewTransport(store *Store, options ...Option) *Transport {
	cfg := newConfig(options)

	return newTransport(store, cfg, newRandomizer(cfg.randSource), nil)
}

func newTransport(store *Store, cfg config, rnd *randomizer, metrics *Metrics) *Transport {
	if store == nil {
		store = NewStore()
	}
	transport := &Transport{
		store:      store,
		token:      cfg.token,
		bot:        cfg.botUser(),
		clock:      cfg.clock,
		rnd:        rnd,
		logger:     cfg.logger,
		metrics:    metrics,
		responseID: NewCounter(1),
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.HandleFunc("/bot{token}/{method}", transport.serveMethod)
	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeAPIError(w, http.StatusNotFound, "Not Found")
	})
	transport.router = router

	return transport
}

// Do serves req in memory.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	recorder := httptest.NewRecorder()
	t.router.ServeHTTP(recorder, req)

	response := recorder.Result()
	response.Request = req

	return response, nil
}

// Handler exposes the transport as an HTTP handler, for serving it from an
// httptest.Server.
func (t *Transport) Handler() http.Handler {
	return t.router
}

// Store returns the capture store the transport records into.
func (t *Transport) Store() *Store {
	return t.store
}

// BotUser returns the synthetic bot identity.
func (t *Transport) BotUser() tgbotapi.User {
	return t.bot
}

// SetNextDiceValue queues value for a later sendDice. Queued values are used
// oldest first, each exactly once, and are not range checked.
func (t *Transport) SetNextDiceValue(value int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dice = append(t.dice, value)
}

// PendingDiceValues returns the queued dice values not yet consumed.
func (t *Transport) PendingDiceValues() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]int(nil), t.dice...)
}

// ResetMessageCounter restarts response message ids at 1.
func (t *Transport) ResetMessageCounter() {
	t.responseID.Reset()
}

// Reset restarts response message ids, empties the dice queue and forgets
// commands set with setMyCommands.
func (t *Transport) Reset() {
	t.responseID.Reset()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.dice = nil
	t.commands = nil
}

func (t *Transport) serveMethod(w http.ResponseWriter, r *http.Request) {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	if chi.URLParam(r, "token") != t.token {
		writeAPIError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	fields, err := readFields(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "Bad Request: "+err.Error())
		return
	}

	call := t.Intercept(chi.URLParam(r, "method"), fields)
	result, err := json.Marshal(call.Response)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
		return
	}
	writeAPIResponse(w, http.StatusOK, tgbotapi.APIResponse{Ok: true, Result: result})
}

// Intercept classifies, answers and records one call. Unknown methods are
// recorded as CallOther and answered with true.
func (t *Transport) Intercept(method string, fields map[string]string) CapturedCall {
	kind := KindOf(method)
	submitted := make(map[string]string, len(fields))
	for key, value := range fields {
		submitted[key] = value
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	call := CapturedCall{
		Kind:      kind,
		Method:    method,
		Params:    decodeParams(kind, method, submitted),
		Fields:    submitted,
		Timestamp: t.clock(),
	}
	call.Response = t.synthesizeLocked(call)
	t.store.Add(call)
	t.metrics.observeCall(kind)
	t.logger.Debug("bottest intercepted call",
		"method", method,
		"kind", kind,
		"chat_id", submitted["chat_id"],
	)

	return call
}

// readFields collects url-encoded or multipart form values. Uploaded files
// are recorded under their field name as the uploaded file name.
func readFields(r *http.Request) (map[string]string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		fields := flatten(r.MultipartForm.Value)
		for name, headers := range r.MultipartForm.File {
			if len(headers) > 0 {
				fields[name] = headers[0].Filename
			}
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form: %w", err)
	}

	return flatten(r.Form), nil
}

func flatten(values map[string][]string) map[string]string {
	fields := make(map[string]string, len(values))
	for key, list := range values {
		if len(list) > 0 {
			fields[key] = list[0]
		}
	}

	return fields
}

func writeAPIError(w http.ResponseWriter, status int, description string) {
	writeAPIResponse(w, status, tgbotapi.APIResponse{
		Ok:          false,
		ErrorCode:   status,
		Description: strings.TrimSpace(description),
	})
}

func writeAPIResponse(w http.ResponseWriter, status int, response tgbotapi.APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
