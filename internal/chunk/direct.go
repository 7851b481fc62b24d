package chunk

// computeDirect interleaves records round-robin, one dequeue per record per
// cycle, emitting (nil, nil) for any record already Done. It terminates
// after the first cycle in which every record was already Done when the
// cycle began, which keeps the queue length a multiple of len(records)
// (spec.md §4.6 "Direct (interleaved)", Testable Property 8).
func computeDirect(records []*ChunkRecord) []Coordinate {
	if len(records) == 0 {
		return nil
	}
	var queue []Coordinate
	for {
		allDoneBefore := true
		for _, r := range records {
			if !r.Done {
				allDoneBefore = false
				break
			}
		}
		for _, r := range records {
			skip, take := r.Next()
			queue = append(queue, Coordinate{Skip: skip, Take: take})
		}
		if allDoneBefore {
			break
		}
	}
	return queue
}
