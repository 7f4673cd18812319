package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Column names of the candlesticks table.
const (
	ColMarketID           = "market_id"
	ColSymbolEmojis       = "symbol_emojis"
	ColPeriod             = "period"
	ColStartTime          = "start_time"
	ColTransactionVersion = "transaction_version"
	ColOpenPrice          = "open_price"
	ColHighPrice          = "high_price"
	ColLowPrice           = "low_price"
	ColClosePrice         = "close_price"
	ColVolume             = "volume"
)

// Candlestick is one OHLCV row produced by the indexer for a market and period.
type Candlestick struct {
	MarketID           int64           `json:"market_id" db:"market_id"`
	SymbolEmojis       []string        `json:"symbol_emojis" db:"-"`
	Period             Period          `json:"period" db:"period"`
	StartTime          time.Time       `json:"start_time" db:"start_time"`
	TransactionVersion int64           `json:"transaction_version" db:"transaction_version"`
	OpenPrice          decimal.Decimal `json:"open_price" db:"open_price"`
	HighPrice          decimal.Decimal `json:"high_price" db:"high_price"`
	LowPrice           decimal.Decimal `json:"low_price" db:"low_price"`
	ClosePrice         decimal.Decimal `json:"close_price" db:"close_price"`
	Volume             decimal.Decimal `json:"volume" db:"volume"`
}

// Column returns the value stored under a column name.
func (c *Candlestick) Column(key string) (any, bool) {
	switch key {
	case ColMarketID:
		return c.MarketID, true
	case ColSymbolEmojis:
		return c.SymbolEmojis, true
	case ColPeriod:
		return string(c.Period), true
	case ColStartTime:
		return c.StartTime, true
	case ColTransactionVersion:
		return c.TransactionVersion, true
	case ColOpenPrice:
		return c.OpenPrice, true
	case ColHighPrice:
		return c.HighPrice, true
	case ColLowPrice:
		return c.LowPrice, true
	case ColClosePrice:
		return c.ClosePrice, true
	case ColVolume:
		return c.Volume, true
	default:
		return nil, false
	}
}

// SetColumn assigns v to the named column. It accepts the native Go value as well as
// the forms JSON decoding produces (strings, json.Number, float64, []any).
func (c *Candlestick) SetColumn(key string, v any) error {
	var err error
	switch key {
	case ColMarketID:
		c.MarketID, err = toInt64(v)
	case ColSymbolEmojis:
		c.SymbolEmojis, err = toStrings(v)
	case ColPeriod:
		var s string
		if s, err = toString(v); err == nil {
			c.Period = Period(s)
		}
	case ColStartTime:
		c.StartTime, err = toTime(v)
	case ColTransactionVersion:
		c.TransactionVersion, err = toInt64(v)
	case ColOpenPrice:
		c.OpenPrice, err = toDecimal(v)
	case ColHighPrice:
		c.HighPrice, err = toDecimal(v)
	case ColLowPrice:
		c.LowPrice, err = toDecimal(v)
	case ColClosePrice:
		c.ClosePrice, err = toDecimal(v)
	case ColVolume:
		c.Volume, err = toDecimal(v)
	default:
		return fmt.Errorf("unknown column %q", key)
	}
	if err != nil {
		return fmt.Errorf("column %s: %w", key, err)
	}
	return nil
}

// Bar is the shape the charting library expects from getBars.
type Bar struct {
	Time   int64   `json:"time"` // unix milliseconds
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ToBar converts the candlestick into a charting bar.
func (c *Candlestick) ToBar() Bar {
	return Bar{
		Time:   c.StartTime.UnixMilli(),
		Open:   c.OpenPrice.InexactFloat64(),
		High:   c.HighPrice.InexactFloat64(),
		Low:    c.LowPrice.InexactFloat64(),
		Close:  c.ClosePrice.InexactFloat64(),
		Volume: c.Volume.InexactFloat64(),
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("non-integer value %v", x)
		}
		// 2^63 is exact in float64; MaxInt64 is not.
		if x >= 1<<63 || x < -(1<<63) {
			return 0, fmt.Errorf("value %v overflows int64", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case Period:
		return string(x), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}

func toStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return x, nil
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			s, err := toString(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}

const naiveTimestamp = "2006-01-02T15:04:05.999999999"

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t, nil
		}
		// Postgres "timestamp" columns come back without a zone and are UTC.
		return time.ParseInLocation(naiveTimestamp, x, time.UTC)
	default:
		return time.Time{}, fmt.Errorf("unsupported type %T", v)
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		return decimal.NewFromString(x)
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported type %T", v)
	}
}
