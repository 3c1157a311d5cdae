package domain

import "time"

// TransactionRecord is a single token transfer as reported by a chain
// explorer. Read-only; the anomaly detector consumes these in bulk.
type TransactionRecord struct {
	From         string
	To           string
	Value        float64
	GasPrice     float64
	MaxFeePerGas float64
	Input        []byte
	Timestamp    time.Time
}
