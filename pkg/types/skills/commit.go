package skills

import "time"

// Commit is an immutable snapshot reference returned by the content store.
// IsLatest is derived client-side from the history ordering.
type Commit struct {
	ID       string    `json:"commitId"`
	Date     time.Time `json:"commitDate"`
	Author   string    `json:"author"`
	IsLatest bool      `json:"latest"`
}

// Revision is skill content paired with the commit it was fetched at
type Revision struct {
	Content string `json:"content"`
	Commit  Commit `json:"commit"`
}

// MarkLatest flags the first commit of a newest-first history as latest and
// clears the flag on every other element. The input slice is not modified.
func MarkLatest(commits []Commit) []Commit {
	out := make([]Commit, len(commits))
	copy(out, commits)
	for i := range out {
		out[i].IsLatest = i == 0
	}
	return out
}
