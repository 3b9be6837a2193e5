package flow

import "sort"

// SortField selects the ordering for TopRecords.
type SortField string

const (
	SortByBytes   SortField = "bytes"
	SortByPackets SortField = "packets"
	SortByRate    SortField = "rate"
)

// TopRecords sorts records descending by the given field and returns at most
// n entries. The input slice is sorted in place; callers pass snapshots.
func TopRecords(records []*Record, n int, by SortField) []*Record {
	sort.Slice(records, func(i, j int) bool {
		switch by {
		case SortByPackets:
			return records[i].PacketCount > records[j].PacketCount
		case SortByRate:
			return records[i].Throughput() > records[j].Throughput()
		default:
			return records[i].ByteCount > records[j].ByteCount
		}
	})
	if n > 0 && n < len(records) {
		records = records[:n]
	}
	return records
}
