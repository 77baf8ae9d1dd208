package domain

// RawMessage is one email as fetched from the mail provider. It is never
// persisted; it only feeds the extraction context.
type RawMessage struct {
	Subject     string `json:"subject"`
	From        string `json:"from"`
	Received    string `json:"received"`
	BodyPreview string `json:"body_preview"`
}
