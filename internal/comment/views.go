package comment

// RootsForSurface returns the root comments anchored to slideID, in
// collection order.
func RootsForSurface(comments []Comment, slideID string) []Comment {
	var out []Comment
	for _, c := range comments {
		if c.IsRoot() && c.SlideID == slideID {
			out = append(out, c)
		}
	}
	return out
}

// RepliesFor returns exactly the comments whose ParentID is rootID.
func RepliesFor(comments []Comment, rootID string) []Comment {
	var out []Comment
	for _, c := range comments {
		if c.ParentID == rootID && rootID != "" {
			out = append(out, c)
		}
	}
	return out
}

// CountRoots returns the number of root comments.
func CountRoots(comments []Comment) int {
	n := 0
	for _, c := range comments {
		if c.IsRoot() {
			n++
		}
	}
	return n
}

// CountUnresolvedRoots returns the number of open threads.
func CountUnresolvedRoots(comments []Comment) int {
	n := 0
	for _, c := range comments {
		if c.IsRoot() && !c.Resolved {
			n++
		}
	}
	return n
}

// Thread is a root with its replies.
type Thread struct {
	Root    Comment   `json:"root"`
	Replies []Comment `json:"replies"`
}

// Threads groups the roots of slideID with their replies. An empty slideID
// selects every surface. Replies whose parent is missing are not included.
func Threads(comments []Comment, slideID string) []Thread {
	var out []Thread
	for _, c := range comments {
		if !c.IsRoot() || (slideID != "" && c.SlideID != slideID) {
			continue
		}
		out = append(out, Thread{Root: c, Replies: RepliesFor(comments, c.ID)})
	}
	return out
}

// WithoutThread returns comments minus rootID and every reply to it, plus the
// ids that were removed. Deleting a reply removes only that reply.
func WithoutThread(comments []Comment, rootID string) ([]Comment, []string) {
	kept := make([]Comment, 0, len(comments))
	var removed []string
	for _, c := range comments {
		if c.ID == rootID || (rootID != "" && c.ParentID == rootID) {
			removed = append(removed, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}
