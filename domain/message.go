package domain

// Message is a single chat entry. Messages are append-only; nothing in
// the board core mutates or deletes them after insertion.
type Message struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Sender      string `json:"sender"`
	SenderID    string `json:"senderId,omitempty"`
	SenderPhoto string `json:"senderPhoto,omitempty"`
	// Timestamp is in Unix milliseconds. Clients sort by value; insertion
	// order carries no guarantee of its own.
	Timestamp int64 `json:"timestamp"`
}
