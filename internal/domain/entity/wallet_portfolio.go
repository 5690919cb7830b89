package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryPoint is one line of the portfolio history: total real value at a unix timestamp.
type HistoryPoint struct {
	Timestamp int64           `json:"timestamp"`
	ValueUSD  decimal.Decimal `json:"valueUsd"`
}

// ChainSubtotal is the real value held on one chain and its change since the previous snapshot.
type ChainSubtotal struct {
	Chain  string          `json:"chain"`
	Value  decimal.Decimal `json:"value"`
	Change decimal.Decimal `json:"change"`
}

// Report is the formatted portfolio update handed to the sinks.
type Report struct {
	TakenAt       time.Time           `json:"takenAt"`
	Text          string              `json:"text"`
	Total         decimal.Decimal     `json:"total"`
	PreviousTotal decimal.Decimal     `json:"previousTotal"`
	Change        decimal.Decimal     `json:"change"`
	ChangePct     decimal.NullDecimal `json:"changePct"`
	Chains        []ChainSubtotal     `json:"chains"`
	TokenLines    int                 `json:"tokenLines"`
}

// CycleResult summarizes one completed polling cycle.
type CycleResult struct {
	Snapshot         *Snapshot
	Report           *Report
	Unresolved       []string
	WalletsRefetched map[string]int
	Duration         time.Duration
}
