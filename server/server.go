// Package server hosts the engine for the browser client: a small REST
// surface over the engine's command/query operations plus a websocket
// hub pushing the account summary after every mutation. It holds no
// trading logic of its own.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/roundtrip"
	"github.com/rustyeddy/papertrade/snapshot"
)

type Server struct {
	eng    *engine.Engine
	store  *snapshot.Store // optional durable snapshot store
	router *mux.Router
	hub    *Hub

	// The watchlist lives outside the account aggregate and survives
	// resets.
	mu        sync.Mutex
	watchlist map[string]struct{}

	allowedOrigins []string
}

func New(eng *engine.Engine, store *snapshot.Store, allowedOrigins []string) *Server {
	s := &Server{
		eng:            eng,
		store:          store,
		router:         mux.NewRouter(),
		hub:            NewHub(),
		watchlist:      make(map[string]struct{}),
		allowedOrigins: allowedOrigins,
	}
	s.setupRoutes()
	return s
}

// SetWatchlist seeds the watchlist, typically from a restored snapshot.
func (s *Server) SetWatchlist(symbols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlist = make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		s.watchlist[sym] = struct{}{}
	}
}

func (s *Server) Watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.watchlist))
	for sym := range s.watchlist {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/account", s.handleGetAccount).Methods("GET")
	api.HandleFunc("/positions", s.handleGetPositions).Methods("GET")
	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/fills", s.handleGetFills).Methods("GET")
	api.HandleFunc("/roundtrips", s.handleGetRoundTrips).Methods("GET")
	api.HandleFunc("/export", s.handleExport).Methods("GET")

	api.HandleFunc("/orders/market", s.handleMarketOrder).Methods("POST")
	api.HandleFunc("/orders/conditional", s.handleConditionalOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancel).Methods("POST")
	api.HandleFunc("/ticks", s.handleTick).Methods("POST")
	api.HandleFunc("/fills/{id}/note", s.handleAttachNote).Methods("POST")
	api.HandleFunc("/reset", s.handleReset).Methods("POST")

	api.HandleFunc("/watchlist", s.handleGetWatchlist).Methods("GET")
	api.HandleFunc("/watchlist", s.handleAddWatchlist).Methods("POST")
	api.HandleFunc("/watchlist/{symbol}", s.handleRemoveWatchlist).Methods("DELETE")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	log.WithField("addr", addr).Info("server starting")
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

// ---- helpers ----

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, engine.ErrOrderNotFound), errors.Is(err, engine.ErrFillNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInsufficientShares),
		errors.Is(err, engine.ErrOrderNotPending):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) summary() accountSummary {
	return accountSummary{
		Cash:           s.eng.Cash().String(),
		PortfolioValue: s.eng.PortfolioValue().String(),
		UnrealizedPL:   s.eng.TotalUnrealizedPL().String(),
		OpenPositions:  len(s.eng.Positions()),
		PendingOrders:  len(s.eng.PendingOrders()),
	}
}

// afterMutation pushes the fresh summary to websocket clients and writes
// a durable snapshot when a store is configured.
func (s *Server) afterMutation() {
	s.hub.BroadcastJSON(map[string]any{
		"type":    "account",
		"account": s.summary(),
	})

	if s.store == nil {
		return
	}
	st, err := s.eng.State()
	if err != nil {
		log.WithError(err).Error("snapshot capture failed")
		return
	}
	rec := snapshot.NewRecord(st, s.Watchlist(), time.Now().UTC())
	if err := s.store.Save(rec); err != nil {
		log.WithError(err).Error("snapshot save failed")
	}
}

// ---- queries ----

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summary())
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.eng.Positions())
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("pending") == "true" {
		writeJSON(w, http.StatusOK, s.eng.PendingOrders())
		return
	}
	writeJSON(w, http.StatusOK, s.eng.Orders())
}

func (s *Server) handleGetFills(w http.ResponseWriter, r *http.Request) {
	fills, err := s.eng.Fills()
	if err != nil {
		writeError(w, err)
		return
	}
	notes, err := s.eng.Notes()
	if err != nil {
		writeError(w, err)
		return
	}

	type fillWithNote struct {
		journal.Fill
		Note *journal.Note `json:"note,omitempty"`
	}
	out := make([]fillWithNote, 0, len(fills))
	for _, f := range fills {
		row := fillWithNote{Fill: f}
		if n, ok := notes[f.ID]; ok && !n.Empty() {
			note := n
			row.Note = &note
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRoundTrips(w http.ResponseWriter, r *http.Request) {
	fills, err := s.eng.Fills()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roundtrip.Reconcile(fills))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	fills, err := s.eng.Fills()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)
	if err := roundtrip.WriteAnalysisCSV(w, roundtrip.Reconcile(fills), s.eng.StartingCash()); err != nil {
		log.WithError(err).Error("csv export failed")
	}
}

// ---- commands ----

func (s *Server) handleMarketOrder(w http.ResponseWriter, r *http.Request) {
	var req marketOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid side"})
		return
	}
	price, ok := parsePrice(req.Price)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid price"})
		return
	}

	order := engine.MarketOrderRequest{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Price:    price,
	}
	if req.StopLoss != nil {
		sl, ok := parsePrice(*req.StopLoss)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid stop_loss"})
			return
		}
		order.StopLoss = &sl
	}
	if req.TakeProfit != nil {
		tp, ok := parsePrice(*req.TakeProfit)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid take_profit"})
			return
		}
		order.TakeProfit = &tp
	}

	fill, err := s.eng.SubmitMarketOrder(order)
	if err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation()
	writeJSON(w, http.StatusCreated, fill)
}

func (s *Server) handleConditionalOrder(w http.ResponseWriter, r *http.Request) {
	var req conditionalOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid side"})
		return
	}
	kind, ok := parseKind(req.Kind)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid kind"})
		return
	}
	price, ok := parsePrice(req.Price)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid price"})
		return
	}

	order, err := s.eng.SubmitConditionalOrder(engine.ConditionalOrderRequest{
		Symbol:   req.Symbol,
		Side:     side,
		Kind:     kind,
		Quantity: req.Quantity,
		Price:    price,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation()
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.eng.Cancel(req.OrderID); err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	price, ok := parsePrice(req.Price)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid price"})
		return
	}

	fills, err := s.eng.OnPriceTick(market.Tick{Symbol: req.Symbol, Price: price, Time: req.Time})
	if err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation()
	writeJSON(w, http.StatusOK, map[string]any{"fills": fills})
}

func (s *Server) handleAttachNote(w http.ResponseWriter, r *http.Request) {
	fillID := mux.Vars(r)["id"]
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	err := s.eng.AttachNote(fillID, journal.Note{Text: req.Text, Transcript: req.Transcript})
	if err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation()
	writeJSON(w, http.StatusOK, map[string]string{"status": "attached"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Reset(); err != nil {
		writeError(w, err)
		return
	}
	// Watchlist survives reset on purpose.
	s.afterMutation()
	writeJSON(w, http.StatusOK, s.summary())
}

// ---- watchlist ----

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Watchlist())
}

func (s *Server) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	var req watchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}
	s.mu.Lock()
	s.watchlist[req.Symbol] = struct{}{}
	s.mu.Unlock()
	s.afterMutation()
	writeJSON(w, http.StatusOK, s.Watchlist())
}

func (s *Server) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	s.mu.Lock()
	delete(s.watchlist, symbol)
	s.mu.Unlock()
	s.afterMutation()
	writeJSON(w, http.StatusOK, s.Watchlist())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
