package paper

import "errors"

// Ledger errors are recoverable and local: an operation either fully applies
// its balance and position changes or applies none.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientMargin  = errors.New("insufficient balance for margin")
	ErrInvalidLeverage     = errors.New("invalid leverage")
	ErrUnsupportedSymbol   = errors.New("only USDT quoted pairs are supported")
	ErrPositionAlreadyOpen = errors.New("position already open for symbol")
	ErrPositionNotFound    = errors.New("position not found")
	ErrPositionNotOpen     = errors.New("position is not open")
	ErrInvalidSide         = errors.New("unknown order side")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidPrice        = errors.New("price must be positive")
)
