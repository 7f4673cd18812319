package chunks

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartfeed/internal/domain/models"
)

var allKeys = []string{
	models.ColMarketID,
	models.ColSymbolEmojis,
	models.ColPeriod,
	models.ColStartTime,
	models.ColTransactionVersion,
	models.ColOpenPrice,
	models.ColHighPrice,
	models.ColLowPrice,
	models.ColClosePrice,
	models.ColVolume,
}

func sampleRows(n int) []models.Candlestick {
	rows := make([]models.Candlestick, n)
	for i := range rows {
		rows[i] = models.Candlestick{
			MarketID:           7,
			SymbolEmojis:       []string{"🐸", "🔥"},
			Period:             models.Period1M,
			StartTime:          base.Add(time.Duration(i) * time.Minute),
			TransactionVersion: 1_000_000 + int64(i),
			OpenPrice:          decimal.RequireFromString("0.000001234"),
			HighPrice:          decimal.RequireFromString("0.000001500"),
			LowPrice:           decimal.RequireFromString("0.000001100"),
			ClosePrice:         decimal.NewFromFloat(0.0000014).Add(decimal.New(int64(i), -9)),
			Volume:             decimal.NewFromInt(int64(100 * (i + 1))),
		}
	}
	return rows
}

func TestPackEmptyRowsReturnsNil(t *testing.T) {
	chunk, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Strict: true})
	require.NoError(t, err)
	assert.Nil(t, chunk)
}

func TestPackHeaderFromFirstRow(t *testing.T) {
	rows := sampleRows(3)
	chunk, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Rows: rows})
	require.NoError(t, err)
	require.NotNil(t, chunk)

	assert.Equal(t, int64(7), chunk.Metadata.MarketID)
	assert.Equal(t, []string{"🐸", "🔥"}, chunk.Metadata.SymbolEmojis)
	assert.Equal(t, models.Period1M, chunk.Metadata.Period)
	assert.Equal(t, DefaultKeyOrdering, chunk.Metadata.KeyOrdering)
	require.Len(t, chunk.Rows, 3)
	assert.Len(t, chunk.Rows[0], len(DefaultKeyOrdering))
	assert.Equal(t, rows[2].StartTime, chunk.Rows[2][0])
	assert.Equal(t, rows[2].TransactionVersion, chunk.Rows[2][1])
}

func TestPackUnpackRoundTrip(t *testing.T) {
	rows := sampleRows(25)
	chunk, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Rows: rows, KeyOrdering: allKeys, Strict: true})
	require.NoError(t, err)

	got, err := Unpack(chunk)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestPackUnpackRoundTripThroughJSON(t *testing.T) {
	rows := sampleRows(4)
	chunk, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Rows: rows})
	require.NoError(t, err)

	b, err := json.Marshal(chunk)
	require.NoError(t, err)

	var decoded models.CachedChunk
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&decoded))

	got, err := Unpack(&decoded)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.True(t, rows[i].StartTime.Equal(got[i].StartTime))
		assert.Equal(t, rows[i].TransactionVersion, got[i].TransactionVersion)
		assert.True(t, rows[i].OpenPrice.Equal(got[i].OpenPrice))
		assert.True(t, rows[i].ClosePrice.Equal(got[i].ClosePrice))
		assert.True(t, rows[i].Volume.Equal(got[i].Volume))
		assert.Equal(t, rows[i].SymbolEmojis, got[i].SymbolEmojis)
	}
}

func TestPackProjectsOnlyListedKeys(t *testing.T) {
	rows := sampleRows(2)
	keys := []string{models.ColStartTime, models.ColClosePrice}
	chunk, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Rows: rows, KeyOrdering: keys})
	require.NoError(t, err)

	got, err := Unpack(chunk)
	require.NoError(t, err)
	for i := range rows {
		assert.Equal(t, rows[i].StartTime, got[i].StartTime)
		assert.Equal(t, rows[i].ClosePrice, got[i].ClosePrice)
		assert.Zero(t, got[i].TransactionVersion)
		assert.Equal(t, rows[i].MarketID, got[i].MarketID)
	}
}

func TestPackStrictDetectsMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rows []models.Candlestick)
		keys   []string
		field  string
	}{
		{
			name:   "market",
			mutate: func(rows []models.Candlestick) { rows[2].MarketID = 8 },
			field:  models.ColMarketID,
		},
		{
			name:   "symbol",
			mutate: func(rows []models.Candlestick) { rows[1].SymbolEmojis = []string{"🐸"} },
			field:  models.ColSymbolEmojis,
		},
		{
			name:   "period",
			mutate: func(rows []models.Candlestick) { rows[2].Period = models.Period5M },
			field:  models.ColPeriod,
		},
		{
			name:   "unknown key",
			mutate: func([]models.Candlestick) {},
			keys:   []string{models.ColStartTime, "nonce"},
			field:  "nonce",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows := sampleRows(3)
			tc.mutate(rows)
			_, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Rows: rows, KeyOrdering: tc.keys, Strict: true})
			require.ErrorIs(t, err, ErrPackMismatch)

			var pm *PackMismatchError
			require.ErrorAs(t, err, &pm)
			assert.Equal(t, tc.field, pm.Field)
		})
	}
}

func TestPackNonStrictSkipsValidation(t *testing.T) {
	rows := sampleRows(3)
	rows[2].MarketID = 8
	chunk, err := Pack(PackInput{MarketID: 7, Period: models.Period1M, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, int64(7), chunk.Metadata.MarketID)
}

func TestPackStrictInputHeaderMismatch(t *testing.T) {
	_, err := Pack(PackInput{MarketID: 9, Period: models.Period1M, Rows: sampleRows(1), Strict: true})
	assert.ErrorIs(t, err, ErrPackMismatch)
}

func TestUnpackRejectsShortTuple(t *testing.T) {
	chunk := &models.CachedChunk{
		Metadata: models.ChunkHeader{KeyOrdering: []string{models.ColStartTime, models.ColVolume}},
		Rows:     [][]any{{base}},
	}
	_, err := Unpack(chunk)
	assert.Error(t, err)
}
