package report

import (
	"errors"
	"fmt"

	"github.com/wudi/plantreport/tabular"
)

// ErrInvalidChunkSize is returned for a column limit below one.
var ErrInvalidChunkSize = errors.New("report: max columns per page must be at least 1")

// Chunk is the set of columns drawn together in one table: the pinned Date
// and Time columns followed by a contiguous run of data columns.
type Chunk struct {
	Index int
	Data  []string
}

// Columns returns the pinned columns followed by the chunk's data columns.
func (c Chunk) Columns() []string {
	out := make([]string, 0, len(c.Data)+2)
	out = append(out, tabular.DateColumn, tabular.TimeColumn)
	return append(out, c.Data...)
}

// ChunkColumns partitions the data columns into runs of at most maxPerPage,
// keeping their order. No data columns yields a single chunk holding only
// the pinned columns.
func ChunkColumns(data []string, maxPerPage int) ([]Chunk, error) {
	if maxPerPage < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidChunkSize, maxPerPage)
	}
	if len(data) == 0 {
		return []Chunk{{}}, nil
	}
	chunks := make([]Chunk, 0, (len(data)+maxPerPage-1)/maxPerPage)
	for start := 0; start < len(data); start += maxPerPage {
		end := min(start+maxPerPage, len(data))
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Data:  append([]string(nil), data[start:end]...),
		})
	}
	return chunks, nil
}
