package recorder

import (
	"sort"

	"golang.org/x/mod/semver"
)

// legacyVersionCutoff is the first format version with complete records
const legacyVersionCutoff = "v2.0.0"

// isLegacyVersion reports whether a file predates complete records.
// Missing or unparsable versions count as legacy.
func isLegacyVersion(version string) bool {
	return semver.Compare("v"+version, legacyVersionCutoff) < 0
}

// migrateLegacy back-fills fields that older files did not store. Values are
// derived from record content and file position only, so loading the same
// file twice yields the same records.
func migrateLegacy(records []CallRecord) {
	if len(records) == 0 {
		return
	}

	// Position order: recording time first, file order as tiebreak
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return records[order[a]].Timestamp < records[order[b]].Timestamp
	})

	var maxSequence int64
	var minTimestamp int64
	for i, record := range records {
		if record.GlobalSequence > maxSequence {
			maxSequence = record.GlobalSequence
		}
		if record.Timestamp > 0 && (i == 0 || minTimestamp == 0 || record.Timestamp < minTimestamp) {
			minTimestamp = record.Timestamp
		}
	}

	next := maxSequence
	for position, idx := range order {
		record := &records[idx]
		if record.PromptHash == "" {
			record.PromptHash = HashPrompt(record.Prompt)
		}
		if record.ContextHash == "" {
			record.ContextHash = HashContext(record.CallerID, record.CallKind, "")
		}
		if record.GlobalSequence == 0 {
			next++
			record.GlobalSequence = next
		}
		if record.RelativeTimestamp == 0 {
			if record.Timestamp > 0 && minTimestamp > 0 {
				record.RelativeTimestamp = record.Timestamp - minTimestamp
			} else {
				record.RelativeTimestamp = int64(position)
			}
		}
	}
}
