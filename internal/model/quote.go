package model

// Quote represents a row in the `quote` table served by the quote API.
type Quote struct {
	ID   string `json:"id"`   // quote.id
	Text string `json:"text"` // quote.text
}
