package domain

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Item is a catalog record served by the remote item server.
type Item struct {
	Title string `json:"title"`
	Price int64  `json:"price"`
}

// MarketItem is one entry of a marketplace shopping search. The API sends the
// lowest price as a quoted number.
type MarketItem struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Image    string `json:"image"`
	LowPrice int64  `json:"lprice,string"`
}

// PlainTitle returns the title without the <b> highlight markup the search API
// wraps around matched terms.
func (m MarketItem) PlainTitle() string {
	if !strings.ContainsRune(m.Title, '<') {
		return strings.TrimSpace(m.Title)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.Title))
	if err != nil {
		return strings.TrimSpace(m.Title)
	}
	return strings.TrimSpace(doc.Text())
}

// Credential is the fixed payload attached to write-style catalog calls.
type Credential struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}
