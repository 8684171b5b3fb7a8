package syncengine

import (
	"github.com/evcraddock/slidenotes/internal/comment"
)

// Conflict is a pending local change overtaken by a newer, different server
// record. The server record is the one kept.
type Conflict struct {
	Local  comment.Comment
	Server comment.Comment
}

// MergeResult is the outcome of reconciling a server snapshot.
type MergeResult struct {
	Merged            []comment.Comment
	Conflicts         []Conflict
	DeletedFromServer []string
}

// Merge reconciles the server collection with the local one, per id:
//
//   - on the server with a pending change: a strictly newer server record
//     wins (and is a conflict when it differs materially from the pending
//     snapshot); otherwise the pending snapshot is laid over the server
//     record, or the record is left out when the change is a delete.
//   - on the server without a pending change: the server record, verbatim.
//   - only local: kept while a pending change exists, otherwise dropped and
//     reported as deleted on the server.
//
// Merge does not modify its inputs.
func Merge(server, local []comment.Comment, pending map[string]PendingChange, eps float64) MergeResult {
	res := MergeResult{Merged: make([]comment.Comment, 0, len(server)+len(pending))}
	onServer := make(map[string]bool, len(server))

	for _, s := range server {
		onServer[s.ID] = true
		p, ok := pending[s.ID]
		switch {
		case ok && s.Time().After(p.Time()):
			if comment.MateriallyDifferent(p.Comment, s, eps) {
				res.Conflicts = append(res.Conflicts, Conflict{Local: p.Comment, Server: s})
			}
			res.Merged = append(res.Merged, s)
		case ok && p.Deleted:
			// Delete still in flight.
		case ok:
			res.Merged = append(res.Merged, p.overlay(s))
		default:
			// A local copy without a pending change is stale whenever it
			// differs, so the server record is taken as is.
			res.Merged = append(res.Merged, s)
		}
	}

	for _, l := range local {
		if onServer[l.ID] {
			continue
		}
		if _, ok := pending[l.ID]; ok {
			res.Merged = append(res.Merged, l)
			continue
		}
		res.DeletedFromServer = append(res.DeletedFromServer, l.ID)
	}

	return res
}
