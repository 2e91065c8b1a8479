package view

import "orgcal/internal/model"

// Resolve executes every query of the view identified by token against the
// record snapshot and merges all matches into one Entry per record. An
// unknown token resolves to an empty result, not an error.
//
// Calendars are walked in declaration order, queries within each calendar in
// declaration order, in a single pass. The merge comparator has two cases: a
// candidate with strictly higher detail precedence than the stored winner
// replaces it, and every other candidate overwrites the winner as well, so
// among equal-or-lower detail candidates the last declaration wins. For
// non-increasing detail sequences this degenerates to "last one wins" - a
// later broader declaration does displace an earlier restrictive one.
//
// Entries keep the order in which their records were first matched.
func Resolve(t *Table, token string, records []model.Task) []Entry {
	v := t.Lookup(token)
	if v == nil {
		return []Entry{}
	}

	entries := make([]Entry, 0)
	winners := make(map[int64]int) // record id -> index into entries

	for _, cal := range v.Calendars {
		for _, q := range cal.Queries {
			for i := range records {
				rec := &records[i]
				if !q.Filter.Match(rec) {
					continue
				}
				cand := Entry{
					Task:     *rec,
					Detail:   q.Detail,
					Category: cal.Name,
					Color:    cal.Color,
				}
				idx, seen := winners[rec.ID]
				if !seen {
					winners[rec.ID] = len(entries)
					entries = append(entries, cand)
					continue
				}
				cur := entries[idx]
				if cand.Detail.Precedence() > cur.Detail.Precedence() {
					// More restrictive level wins regardless of order.
					entries[idx] = cand
				} else {
					// Among the rest the last declaration wins.
					entries[idx] = cand
				}
			}
		}
	}
	return entries
}
