package models

// Requests for the charting HTTP endpoints.

type CandlesticksRequest struct {
	MarketID         int64  `query:"marketID" json:"marketID" validate:"required,gte=1"`
	Period           string `query:"period" json:"period" default:"period_1m" validate:"required"`
	From             int64  `query:"from" json:"from" validate:"gte=0"`
	To               int64  `query:"to" json:"to" validate:"required,gtfield=From"`
	CountBack        int    `query:"countBack" json:"countBack" default:"300" validate:"gte=0,lte=20000"`
	FirstDataRequest bool   `query:"firstDataRequest" json:"firstDataRequest"`
}

type ChunksRequest struct {
	MarketID int64  `query:"marketID" json:"marketID" validate:"required,gte=1"`
	Period   string `query:"period" json:"period" default:"period_1m" validate:"required"`
}
