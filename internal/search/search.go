package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultNote ResultType = "note"
	ResultTask ResultType = "task"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	FolderID string     `json:"folderId,omitempty"`
	Lane     string     `json:"lane,omitempty"`
	OwnerID  string     `json:"ownerId"`
}

// Query describes a search request. OwnerID is always required; results
// never cross owner boundaries.
type Query struct {
	Text           string
	OwnerID        string
	FilterType     ResultType // empty = all types
	FilterFolderID string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexNote(n NoteRecord) error
	IndexTask(t TaskRecord) error
	DeleteNote(id string) error
	DeleteTask(id string) error
}

// NoteRecord is the data we index for a note.
type NoteRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	OwnerID  string `json:"ownerId"`
	FolderID string `json:"folderId"`
	Pinned   bool   `json:"pinned"`
}

// TaskRecord is the data we index for a task.
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     string `json:"ownerId"`
	Lane        string `json:"lane"`
}
