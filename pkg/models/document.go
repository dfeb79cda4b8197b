package models

// Document is one source file indexed into a task's knowledge base.
type Document struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Content string `json:"content"`
}

// DocumentChunk is one embeddable slice of a document.
type DocumentChunk struct {
	Document  string    `json:"document"`
	Index     int       `json:"index"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}
