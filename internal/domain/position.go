package domain

import (
	"fmt"
	"time"
)

// PositionStatus tracks the lifecycle of a position.
// Transitions: open -> partial_closed -> closed; stop-loss may jump
// straight from open to closed. closed is terminal.
type PositionStatus string

const (
	PositionStatusOpen          PositionStatus = "open"
	PositionStatusPartialClosed PositionStatus = "partial_closed"
	PositionStatusClosed        PositionStatus = "closed"
)

// Position is an open or historical holding created by the trading loop.
type Position struct {
	ID              string
	Asset           string // token symbol
	Chain           Chain
	Address         string
	InitialAmount   float64 // token units bought at open
	AmountRemaining float64 // token units still held
	EntryPrice      float64
	RealizedPnL     float64 // USD, accumulated across partial closes
	Status          PositionStatus
	OpenedAt        time.Time
	ClosedAt        *time.Time
	ExitPrice       *float64
}

// Key returns the identity under which the tracker holds the position.
// One position per (chain, asset) may be active at a time.
func (p Position) Key() string {
	return PositionKey(p.Chain, p.Asset)
}

// PositionKey builds the active-set key for a chain and asset symbol.
func PositionKey(chain Chain, asset string) string {
	return fmt.Sprintf("%s-%s", chain, asset)
}
