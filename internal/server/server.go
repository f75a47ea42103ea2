// Package server exposes the ledger, bot lifecycle, and device registry over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Juliocesar7881/Visor-Crypto/internal/execution"
	"github.com/Juliocesar7881/Visor-Crypto/internal/learning"
	"github.com/Juliocesar7881/Visor-Crypto/internal/market"
	"github.com/Juliocesar7881/Visor-Crypto/internal/notify"
	"github.com/Juliocesar7881/Visor-Crypto/internal/paper"
	"github.com/Juliocesar7881/Visor-Crypto/internal/strategy"
	"github.com/Juliocesar7881/Visor-Crypto/internal/stream"
)

const defaultUserID = "demo_user"

// Server wires HTTP routes onto the core services. All state lives in the
// injected collaborators; the server itself is stateless.
type Server struct {
	log      zerolog.Logger
	accounts *paper.Service
	stream   *stream.PriceStream
	engine   *strategy.Engine
	devices  *notify.DeviceStore
	reports  *learning.Store
}

// New constructs a server over explicitly injected services.
func New(log zerolog.Logger, accounts *paper.Service, priceStream *stream.PriceStream, engine *strategy.Engine, devices *notify.DeviceStore, reports *learning.Store) *Server {
	return &Server{
		log:      log,
		accounts: accounts,
		stream:   priceStream,
		engine:   engine,
		devices:  devices,
		reports:  reports,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/account/paper/balance", s.handleBalance)
	mux.HandleFunc("POST /api/account/paper/trade", s.handleTrade)
	mux.HandleFunc("POST /api/account/paper/position", s.handleOpenPosition)
	mux.HandleFunc("GET /api/account/paper/positions", s.handlePositions)
	mux.HandleFunc("POST /api/account/paper/positions/{id}/close", s.handleClosePosition)
	mux.HandleFunc("POST /api/account/paper/positions/{id}/liquidate", s.handleLiquidatePosition)
	mux.HandleFunc("GET /api/account/paper/history", s.handleHistory)
	mux.HandleFunc("POST /api/account/paper/reset", s.handleReset)
	mux.HandleFunc("GET /api/account/paper/reports", s.handleListReports)
	mux.HandleFunc("GET /api/account/paper/reports/{id}", s.handleGetReport)

	mux.HandleFunc("POST /api/bot/state", s.handleBotState)
	mux.HandleFunc("GET /api/bot/status", s.handleBotStatus)
	mux.HandleFunc("GET /api/bot/symbols", s.handleListSymbols)
	mux.HandleFunc("POST /api/bot/symbols", s.handleUpdateSymbols)

	mux.HandleFunc("POST /api/devices", s.handleRegisterDevice)
	mux.HandleFunc("DELETE /api/devices/{token}", s.handleRemoveDevice)

	mux.HandleFunc("GET /api/orderbook/{symbol}", s.handleOrderBook)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func userID(r *http.Request) string {
	if id := r.URL.Query().Get("user_id"); id != "" {
		return id
	}
	return defaultUserID
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := s.accounts.GetOrCreate(userID(r))
	pnl := account.CalculatePnL(s.stream.LastPrices())
	writeJSON(w, http.StatusOK, map[string]any{
		"account_type": "paper_trading",
		"balances":     account.Balances(),
		"pnl":          pnl,
		"positions":    account.Positions(),
		"created_at":   account.CreatedAt(),
	})
}

type tradeRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Amount   float64 `json:"amount"`
	Price    float64 `json:"price"`
	Strategy string  `json:"strategy"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Strategy == "" {
		req.Strategy = "manual"
	}
	account := s.accounts.GetOrCreate(userID(r))
	result, err := account.ExecuteTrade(req.Symbol, execution.Side(req.Side), req.Amount, req.Price, req.Strategy)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"trade":    result.Trade,
		"balances": result.Balances,
	})
}

type openPositionRequest struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Notional float64 `json:"notional_usd"`
	Leverage int     `json:"leverage"`
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var req openPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Leverage == 0 {
		req.Leverage = 1
	}
	entryPrice, ok := s.stream.LastPrice(req.Symbol)
	if !ok {
		writeError(w, http.StatusBadRequest, "mark price unavailable for symbol; is the stream running?")
		return
	}
	account := s.accounts.GetOrCreate(userID(r))
	result, err := account.OpenPosition(req.Symbol, execution.Side(req.Side), req.Notional, req.Leverage, entryPrice)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"position": result.Position,
		"balances": result.Balances,
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	account := s.accounts.GetOrCreate(userID(r))
	writeJSON(w, http.StatusOK, map[string]any{"positions": account.Positions()})
}

type closePositionRequest struct {
	ExitPrice float64 `json:"exit_price"`
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	account := s.accounts.GetOrCreate(userID(r))
	positionID := r.PathValue("id")

	var req closePositionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	exitPrice := req.ExitPrice
	if exitPrice <= 0 {
		position, ok := account.Position(positionID)
		if !ok {
			writeError(w, http.StatusNotFound, paper.ErrPositionNotFound.Error())
			return
		}
		exitPrice, ok = s.stream.LastPrice(position.Symbol)
		if !ok {
			writeError(w, http.StatusBadRequest, "exit price unavailable; provide exit_price")
			return
		}
	}

	result, err := account.ClosePosition(positionID, exitPrice)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"position": result.Position,
		"balances": result.Balances,
	})
}

func (s *Server) handleLiquidatePosition(w http.ResponseWriter, r *http.Request) {
	account := s.accounts.GetOrCreate(userID(r))
	result, err := account.LiquidatePosition(r.PathValue("id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"position": result.Position,
		"balances": result.Balances,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	account := s.accounts.GetOrCreate(userID(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"account_type": "paper_trading",
		"trades":       account.TradeHistory(limit),
		"total_trades": account.TotalTrades(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	account := s.accounts.GetOrCreate(userID(r))
	account.Reset(paper.DefaultInitialBalance)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"balances": account.Balances(),
	})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	reports, err := s.reports.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, ok, err := s.reports.Load(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read reports")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

type botStateRequest struct {
	DesiredState string `json:"desired_state"`
}

func (s *Server) handleBotState(w http.ResponseWriter, r *http.Request) {
	var req botStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	switch req.DesiredState {
	case "start":
		s.stream.Start()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "started",
			"symbols":  s.stream.Symbols(),
			"strategy": strategy.StrategyName,
		})
	case "stop":
		s.stream.Stop()
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
	default:
		writeError(w, http.StatusBadRequest, "desired_state must be start or stop")
	}
}

func (s *Server) handleBotStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":          s.stream.Running(),
		"symbols":          s.stream.Symbols(),
		"strategy":         strategy.StrategyName,
		"detectors_active": s.engine.ActiveDetectors(),
	})
}

func (s *Server) handleListSymbols(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"available":            stream.AvailableSymbols,
		"currently_monitoring": s.stream.Symbols(),
	})
}

func (s *Server) handleUpdateSymbols(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if err := json.NewDecoder(r.Body).Decode(&symbols); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	available := make(map[string]struct{}, len(stream.AvailableSymbols))
	for _, sym := range stream.AvailableSymbols {
		available[sym] = struct{}{}
	}
	for _, sym := range symbols {
		if _, ok := available[sym]; !ok {
			writeError(w, http.StatusBadRequest, "unsupported symbol: "+sym)
			return
		}
	}

	// a running stream must be bounced to pick up the new set
	restarted := s.stream.Running()
	if restarted {
		s.stream.Stop()
	}
	if err := s.stream.SetSymbols(symbols); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if restarted {
		s.stream.Start()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "updated",
		"symbols":       s.stream.Symbols(),
		"bot_restarted": restarted,
	})
}

type deviceRequest struct {
	DeviceToken string `json:"device_token"`
	Platform    string `json:"platform"`
	Language    string `json:"language"`
	AppVersion  string `json:"app_version"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.DeviceToken) < 10 {
		writeError(w, http.StatusBadRequest, "device_token too short")
		return
	}
	if req.Platform != "ios" && req.Platform != "android" {
		writeError(w, http.StatusBadRequest, "platform must be ios or android")
		return
	}
	s.devices.Register(notify.Device{
		Token:      req.DeviceToken,
		Platform:   req.Platform,
		Language:   req.Language,
		AppVersion: req.AppVersion,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "registered",
		"device_token": req.DeviceToken,
	})
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	s.devices.Remove(r.PathValue("token"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	price, ok := s.stream.LastPrice(symbol)
	if !ok {
		if v, err := strconv.ParseFloat(r.URL.Query().Get("price"), 64); err == nil && v > 0 {
			price = v
		} else {
			writeError(w, http.StatusBadRequest, "mark price unavailable; provide ?price=")
			return
		}
	}
	writeJSON(w, http.StatusOK, market.GenerateOrderBook(symbol, price))
}

func writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, paper.ErrPositionNotFound) {
		status = http.StatusNotFound
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
