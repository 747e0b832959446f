// Package catalog defines the normalized product model and the capability
// interfaces shared across the pipeline.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus classifies availability derived from the raw feed stock field.
type StockStatus string

// Stock status values.
const (
	StockIn  StockStatus = "instock"
	StockOut StockStatus = "outstock"
)

// Product is one normalized catalog entry.
type Product struct {
	Name           string          `json:"name"`
	Article        string          `json:"article"`
	Description    string          `json:"description"`
	WholesalePrice decimal.Decimal `json:"wholesale_price"`
	DisplayPrice   decimal.Decimal `json:"display_price"`
	Stock          StockStatus     `json:"stock"`
	Images         []string        `json:"images"`
	Category       string          `json:"category"`
	Subcategory    string          `json:"subcategory"`
}

// InStock reports whether the product is currently available.
func (p Product) InStock() bool {
	return p.Stock == StockIn
}

// ChannelMessage is a recent post on the outbound channel, as much of it as
// the reaper needs: an identifier and whatever text the post carried.
type ChannelMessage struct {
	ID   int64
	Text string
}

// Action is an opaque button attached to a channel post. Token carries the
// product article and is consumed by the order flow.
type Action struct {
	Label string
	Token string
}

// Order is the payload handed to the order sink.
type Order struct {
	ProductName  string
	ProductPrice decimal.Decimal
	ClientName   string
	Phone        string
	PickupPoint  string
}

// FeedEvent describes one confirmed feed revision.
type FeedEvent struct {
	Hash       string    `json:"hash"`
	Bytes      int       `json:"bytes"`
	FetchedAt  time.Time `json:"fetched_at"`
	ArchiveURI string    `json:"archive_uri,omitempty"`
}
