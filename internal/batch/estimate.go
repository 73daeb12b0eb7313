package batch

import (
	"github.com/tphakala/wavenc/internal/codec"
	"github.com/tphakala/wavenc/internal/encoder"
)

// EstimateOutputBytes approximates the total MP3 size of tasks at the
// bitrate each of them will be encoded with
func EstimateOutputBytes(tasks []*encoder.Task, configuredKbps int) uint64 {
	var total uint64
	for _, t := range tasks {
		kbps := codec.BitrateFor(configuredKbps, t.Info.ByteRate)
		seconds := t.Info.Duration().Seconds()
		total += uint64(seconds * float64(kbps) * 1000 / 8)
	}
	return total
}
