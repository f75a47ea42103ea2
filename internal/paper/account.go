// Package paper implements the simulated trading ledger: per-user balances,
// spot trade history, and leveraged positions with realized P&L.
package paper

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Juliocesar7881/Visor-Crypto/internal/execution"
	"github.com/Juliocesar7881/Visor-Crypto/internal/metrics"
)

const (
	epsilon = 1e-9

	// QuoteAsset is the fixed quote currency every supported pair settles in.
	QuoteAsset = "USDT"

	// DefaultInitialBalance seeds new accounts.
	DefaultInitialBalance = 10000.0
)

// defaultAssets are the balances every fresh account starts with.
var defaultAssets = []string{QuoteAsset, "BTC", "ETH", "BNB", "SOL", "XRP", "ADA", "DOGE"}

// maxLeverageBySymbol caps leverage per pair; anything absent is capped at 1x.
var maxLeverageBySymbol = map[string]int{
	"BTCUSDT": 5,
	"ETHUSDT": 5,
	"SOLUSDT": 5,
}

// Trade is an immutable record of a filled spot execution.
type Trade struct {
	ID       string         `json:"id"`
	Symbol   string         `json:"symbol"`
	Side     execution.Side `json:"side"`
	Amount   float64        `json:"amount"`
	Price    float64        `json:"price"`
	Value    float64        `json:"value"`
	Strategy string         `json:"strategy"`
	Ts       time.Time      `json:"timestamp"`
	Status   string         `json:"status"`
}

// PositionStatus enumerates the position lifecycle.
type PositionStatus string

const (
	PositionOpen       PositionStatus = "open"
	PositionClosed     PositionStatus = "closed"
	PositionLiquidated PositionStatus = "liquidated"
)

// Position is a leveraged exposure backed by reserved quote-asset margin.
// Terminal transitions (closed, liquidated) are final; the record is never
// mutated afterwards.
type Position struct {
	ID         string         `json:"id"`
	Symbol     string         `json:"symbol"`
	Side       execution.Side `json:"side"`
	Notional   float64        `json:"notional_usd"`
	Leverage   int            `json:"leverage"`
	Margin     float64        `json:"margin"`
	EntryPrice float64        `json:"entry_price"`
	Qty        float64        `json:"qty"`
	Status     PositionStatus `json:"status"`
	OpenedAt   time.Time      `json:"opened_at"`
	ClosedAt   time.Time      `json:"closed_at,omitzero"`
	PnL        float64        `json:"pnl"`
	PnLPct     float64        `json:"pnl_percentage"`
}

// TradeResult bundles the filled trade with the balances it left behind.
type TradeResult struct {
	Trade    Trade              `json:"trade"`
	Balances map[string]float64 `json:"balances"`
}

// PositionResult bundles a position snapshot with the balances after the change.
type PositionResult struct {
	Position Position           `json:"position"`
	Balances map[string]float64 `json:"balances"`
}

// PnLSummary marks the whole account to a supplied price map.
type PnLSummary struct {
	InitialBalance float64 `json:"initial_balance"`
	CurrentValue   float64 `json:"current_value"`
	PnL            float64 `json:"pnl"`
	PnLPercentage  float64 `json:"pnl_percentage"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
}

// Account tracks virtual balances, trades, and leveraged positions for one
// user. All mutating operations are serialized by the internal lock; distinct
// accounts are fully independent.
type Account struct {
	mu             sync.Mutex
	userID         string
	initialBalance float64
	balances       map[string]float64
	trades         []Trade
	positions      map[string]Position
	openBySymbol   map[string]string
	createdAt      time.Time
	totalTrades    int
	winningTrades  int
	losingTrades   int

	// onTerminal fires after a position reaches a terminal state. Best
	// effort: it must never block or fail the ledger operation.
	onTerminal func(Position)
}

// NewAccount constructs an account seeded with the default asset set.
func NewAccount(userID string, initialBalance float64) *Account {
	if initialBalance <= 0 {
		initialBalance = DefaultInitialBalance
	}
	a := &Account{
		userID:         userID,
		initialBalance: initialBalance,
		positions:      make(map[string]Position),
		openBySymbol:   make(map[string]string),
		createdAt:      time.Now().UTC(),
	}
	a.seedBalances(initialBalance)
	return a
}

// SetTerminalHook registers a callback fired after close/liquidate, used to
// hand the position to the learning-report worker.
func (a *Account) SetTerminalHook(hook func(Position)) {
	a.mu.Lock()
	a.onTerminal = hook
	a.mu.Unlock()
}

func (a *Account) seedBalances(initial float64) {
	a.balances = make(map[string]float64, len(defaultAssets))
	for _, asset := range defaultAssets {
		a.balances[asset] = 0
	}
	a.balances[QuoteAsset] = initial
}

// UserID returns the opaque account owner identifier.
func (a *Account) UserID() string { return a.userID }

// CreatedAt reports when the account was created or last reset.
func (a *Account) CreatedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.createdAt
}

// Balance returns the balance of a single asset.
func (a *Account) Balance(asset string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[strings.ToUpper(asset)]
}

// Balances returns every asset with a positive balance.
func (a *Account) Balances() map[string]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balancesLocked()
}

func (a *Account) balancesLocked() map[string]float64 {
	out := make(map[string]float64, len(a.balances))
	for asset, amount := range a.balances {
		if amount > 0 {
			out[asset] = amount
		}
	}
	return out
}

// baseAsset derives the base asset from a pair symbol (BTCUSDT -> BTC).
func baseAsset(symbol string) string {
	base := strings.TrimSuffix(symbol, QuoteAsset)
	return strings.TrimSuffix(base, "BUSD")
}

// ExecuteTrade fills a spot trade against the account balances. BUY debits
// quote and credits base, SELL the reverse. The operation either fully
// applies or leaves the account untouched.
func (a *Account) ExecuteTrade(symbol string, side execution.Side, amount, price float64, strategy string) (TradeResult, error) {
	if amount <= 0 {
		return TradeResult{}, ErrInvalidAmount
	}
	if price <= 0 {
		return TradeResult{}, ErrInvalidPrice
	}
	symbol = strings.ToUpper(symbol)
	base := baseAsset(symbol)
	value := amount * price

	a.mu.Lock()
	defer a.mu.Unlock()

	switch side {
	case execution.Buy:
		if a.balances[QuoteAsset]+epsilon < value {
			return TradeResult{}, ErrInsufficientBalance
		}
		a.balances[QuoteAsset] -= value
		a.balances[base] += amount
	case execution.Sell:
		if a.balances[base]+epsilon < amount {
			return TradeResult{}, ErrInsufficientBalance
		}
		a.balances[base] -= amount
		a.balances[QuoteAsset] += value
	default:
		return TradeResult{}, ErrInvalidSide
	}

	trade := Trade{
		ID:       uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Amount:   amount,
		Price:    price,
		Value:    value,
		Strategy: strategy,
		Ts:       time.Now().UTC(),
		Status:   "filled",
	}
	a.trades = append(a.trades, trade)
	a.totalTrades++
	metrics.TradesTotal.WithLabelValues(symbol, string(side)).Inc()

	return TradeResult{Trade: trade, Balances: a.balancesLocked()}, nil
}

// OpenPosition reserves margin (notional/leverage) from the quote balance and
// opens a leveraged position. Entry price is mandatory and is quoted from the
// mark-price source by the caller.
func (a *Account) OpenPosition(symbol string, side execution.Side, notional float64, leverage int, entryPrice float64) (PositionResult, error) {
	symbol = strings.ToUpper(symbol)
	if !strings.HasSuffix(symbol, QuoteAsset) {
		return PositionResult{}, ErrUnsupportedSymbol
	}
	if side != execution.Buy && side != execution.Sell {
		return PositionResult{}, ErrInvalidSide
	}
	if notional <= 0 {
		return PositionResult{}, ErrInvalidAmount
	}
	if entryPrice <= 0 {
		return PositionResult{}, ErrInvalidPrice
	}
	maxLeverage := maxLeverageBySymbol[symbol]
	if maxLeverage == 0 {
		maxLeverage = 1
	}
	if leverage < 1 || leverage > maxLeverage {
		return PositionResult{}, ErrInvalidLeverage
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.openBySymbol[symbol]; exists {
		return PositionResult{}, ErrPositionAlreadyOpen
	}
	margin := notional / float64(leverage)
	if a.balances[QuoteAsset]+epsilon < margin {
		return PositionResult{}, ErrInsufficientMargin
	}

	a.balances[QuoteAsset] -= margin
	position := Position{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Notional:   notional,
		Leverage:   leverage,
		Margin:     margin,
		EntryPrice: entryPrice,
		Qty:        notional / entryPrice,
		Status:     PositionOpen,
		OpenedAt:   time.Now().UTC(),
	}
	a.positions[position.ID] = position
	a.openBySymbol[symbol] = position.ID
	metrics.PositionsTotal.WithLabelValues(symbol, "open").Inc()

	return PositionResult{Position: position, Balances: a.balancesLocked()}, nil
}

// ClosePosition realizes P&L at the exit price and releases margin plus P&L
// back to the quote balance. Losses are capped at the reserved margin so the
// quote balance never goes negative.
func (a *Account) ClosePosition(positionID string, exitPrice float64) (PositionResult, error) {
	if exitPrice <= 0 {
		return PositionResult{}, ErrInvalidPrice
	}

	a.mu.Lock()
	position, ok := a.positions[positionID]
	if !ok {
		a.mu.Unlock()
		return PositionResult{}, ErrPositionNotFound
	}
	if position.Status != PositionOpen {
		a.mu.Unlock()
		return PositionResult{}, ErrPositionNotOpen
	}

	pnl := position.Qty * (exitPrice - position.EntryPrice)
	if position.Side == execution.Sell {
		pnl = -pnl
	}
	if pnl < -position.Margin {
		pnl = -position.Margin
	}

	a.balances[QuoteAsset] += position.Margin + pnl
	position.Status = PositionClosed
	position.ClosedAt = time.Now().UTC()
	position.PnL = pnl
	position.PnLPct = pnl / position.Margin * 100
	a.positions[positionID] = position
	delete(a.openBySymbol, position.Symbol)
	a.countOutcome(pnl)
	balances := a.balancesLocked()
	hook := a.onTerminal
	a.mu.Unlock()

	metrics.PositionsTotal.WithLabelValues(position.Symbol, "close").Inc()
	if hook != nil {
		hook(position)
	}
	return PositionResult{Position: position, Balances: balances}, nil
}

// LiquidatePosition forces the liquidated terminal state: the reserved margin
// is forfeited entirely.
func (a *Account) LiquidatePosition(positionID string) (PositionResult, error) {
	a.mu.Lock()
	position, ok := a.positions[positionID]
	if !ok {
		a.mu.Unlock()
		return PositionResult{}, ErrPositionNotFound
	}
	if position.Status != PositionOpen {
		a.mu.Unlock()
		return PositionResult{}, ErrPositionNotOpen
	}

	position.Status = PositionLiquidated
	position.ClosedAt = time.Now().UTC()
	position.PnL = -position.Margin
	position.PnLPct = -100
	a.positions[positionID] = position
	delete(a.openBySymbol, position.Symbol)
	a.losingTrades++
	balances := a.balancesLocked()
	hook := a.onTerminal
	a.mu.Unlock()

	metrics.PositionsTotal.WithLabelValues(position.Symbol, "liquidate").Inc()
	if hook != nil {
		hook(position)
	}
	return PositionResult{Position: position, Balances: balances}, nil
}

func (a *Account) countOutcome(pnl float64) {
	switch {
	case pnl > 0:
		a.winningTrades++
	case pnl < 0:
		a.losingTrades++
	}
}

// Positions returns a snapshot of every position, open and terminal.
func (a *Account) Positions() []Position {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Position, 0, len(a.positions))
	for _, position := range a.positions {
		out = append(out, position)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Position looks up a single position by id.
func (a *Account) Position(positionID string) (Position, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	position, ok := a.positions[positionID]
	return position, ok
}

// OpenPositionID returns the id of the open position for a symbol, if any.
func (a *Account) OpenPositionID(symbol string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.openBySymbol[strings.ToUpper(symbol)]
	return id, ok
}

// CalculatePnL marks every non-quote balance to the supplied price map and
// reports account value against the initial balance baseline. Assets without
// a price contribute zero.
func (a *Account) CalculatePnL(prices map[string]float64) PnLSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	value := a.balances[QuoteAsset]
	for asset, amount := range a.balances {
		if asset == QuoteAsset || amount <= 0 {
			continue
		}
		value += amount * prices[asset+QuoteAsset]
	}

	pnl := value - a.initialBalance
	return PnLSummary{
		InitialBalance: a.initialBalance,
		CurrentValue:   value,
		PnL:            pnl,
		PnLPercentage:  pnl / a.initialBalance * 100,
		TotalTrades:    a.totalTrades,
		WinningTrades:  a.winningTrades,
		LosingTrades:   a.losingTrades,
	}
}

// TradeHistory returns up to limit trades, most recent first.
func (a *Account) TradeHistory(limit int) []Trade {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Trade, len(a.trades))
	copy(out, a.trades)
	sort.Slice(out, func(i, j int) bool { return out[i].Ts.After(out[j].Ts) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TotalTrades reports how many spot trades the account has filled.
func (a *Account) TotalTrades() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalTrades
}

// Reset wipes balances, trades, and positions, reseeding the quote balance.
func (a *Account) Reset(initialBalance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if initialBalance <= 0 {
		initialBalance = a.initialBalance
	}
	a.initialBalance = initialBalance
	a.seedBalances(initialBalance)
	a.trades = nil
	a.positions = make(map[string]Position)
	a.openBySymbol = make(map[string]string)
	a.totalTrades = 0
	a.winningTrades = 0
	a.losingTrades = 0
	a.createdAt = time.Now().UTC()
}
