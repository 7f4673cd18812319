package chunks

import "chartfeed/internal/domain/models"

// Selection is the ascending, contiguous run of chunks a request needs.
type Selection struct {
	Chunks []models.ChunkMetadata
	// Complete is false when the candidates ran out before both the bar count and the
	// time range were covered. Either older chunks were not queried or history ends here.
	Complete bool
	// Closed is true when some chunk starts at or after To, so no bar can still be
	// written inside the selected range.
	Closed bool
}

// Select picks the fewest chunks that cover a getBars request.
//
// The metadata must be ascending by FirstStartTime. Only the first two entries are
// checked; an inverted pair is reported, never re-sorted.
//
// Chunks starting at or after params.To hold no requested bars and are skipped. From the
// newest remaining chunk backward, chunks are taken until their item count reaches
// CountBack + chunkSize. The extra chunk covers the worst case where To falls on the
// first row of the newest selected chunk. Older chunks are then taken until the earliest
// selected chunk starts strictly before params.From.
func Select(chunkSize int, metadata []models.ChunkMetadata, params models.PeriodParams) (Selection, error) {
	if chunkSize <= 0 {
		return Selection{}, ErrInvalidChunkSize
	}
	if len(metadata) > 1 {
		first, second := metadata[0].FirstStartTime, metadata[1].FirstStartTime
		if !first.Before(second) {
			return Selection{}, &OrderingError{First: first, Second: second}
		}
	}

	to, from := params.ToTime(), params.FromTime()

	end := len(metadata)
	for end > 0 && !metadata[end-1].FirstStartTime.Before(to) {
		end--
	}

	countBack := params.CountBack
	if countBack < 0 {
		countBack = 0
	}
	target := countBack + chunkSize

	cut, total := end, 0
	for cut > 0 && total < target {
		cut--
		total += metadata[cut].NumItems
	}
	volumeReached := total >= target

	for cut > 0 && cut < end && !metadata[cut].FirstStartTime.Before(from) {
		cut--
	}
	rangeReached := cut < end && metadata[cut].FirstStartTime.Before(from)

	selected := make([]models.ChunkMetadata, end-cut)
	copy(selected, metadata[cut:end])
	return Selection{
		Chunks:   selected,
		Complete: volumeReached && rangeReached,
		Closed:   end < len(metadata),
	}, nil
}

// ChunkIDs returns the ids of the selected chunks in order.
func (s Selection) ChunkIDs() []int64 {
	ids := make([]int64, len(s.Chunks))
	for i, c := range s.Chunks {
		ids[i] = c.ChunkID
	}
	return ids
}
