package models

import "time"

// ChunkMetadata describes one fixed-capacity group of consecutive candlesticks.
type ChunkMetadata struct {
	ChunkID        int64     `json:"chunkID"`
	FirstStartTime time.Time `json:"firstStartTime"`
	LastStartTime  time.Time `json:"lastStartTime"`
	NumItems       int       `json:"numItems"`
	// Complete is derived from NumItems and the chunk size, never read from storage.
	Complete bool `json:"complete"`
}

// RawChunkMetadata is a row of the chunked_candlesticks_metadata function.
type RawChunkMetadata struct {
	ChunkID        int64     `json:"chunk_id" db:"chunk_id"`
	FirstStartTime time.Time `json:"first_start_time" db:"first_start_time"`
	LastStartTime  time.Time `json:"last_start_time" db:"last_start_time"`
	NumItems       int       `json:"num_items" db:"num_items"`
}

// PeriodParams mirrors the charting datafeed's getBars request.
// To is the latest, non-inclusive boundary; bars are requested backward from it.
type PeriodParams struct {
	From             int64 `json:"from"`
	To               int64 `json:"to"`
	CountBack        int   `json:"countBack"`
	FirstDataRequest bool  `json:"firstDataRequest"`
}

// FromTime returns From as a UTC time.
func (p PeriodParams) FromTime() time.Time { return time.Unix(p.From, 0).UTC() }

// ToTime returns To as a UTC time.
func (p PeriodParams) ToTime() time.Time { return time.Unix(p.To, 0).UTC() }

// ChunkHeader holds the fields every row of a cached chunk shares.
type ChunkHeader struct {
	MarketID     int64    `json:"marketID"`
	SymbolEmojis []string `json:"symbolEmojis"`
	Period       Period   `json:"period"`
	KeyOrdering  []string `json:"keyOrdering"`
}

// CachedChunk is the compact, column-ordered cache entry for one chunk.
// Rows[i][k] holds the value of Metadata.KeyOrdering[k].
type CachedChunk struct {
	Metadata ChunkHeader `json:"metadata"`
	Rows     [][]any     `json:"rows"`
}
