package models

import "time"

// ChunkSealedEvent is published once a chunk is complete and cached permanently.
type ChunkSealedEvent struct {
	MarketID       int64     `json:"market_id"`
	Period         Period    `json:"period"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkID        int64     `json:"chunk_id"`
	FirstStartTime time.Time `json:"first_start_time"`
	LastStartTime  time.Time `json:"last_start_time"`
}

// CandlestickUpdate is emitted by the indexer whenever a candlestick row is written.
type CandlestickUpdate struct {
	MarketID  int64     `json:"market_id"`
	Period    Period    `json:"period"`
	StartTime time.Time `json:"start_time"`
}
