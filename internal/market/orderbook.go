// Package market generates synthetic market-structure payloads for the API.
package market

import (
	"math/rand"
	"strings"
	"time"
)

const bookLevels = 20

// BookLevel is one price level of the simulated order book.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
	Total    float64 `json:"total"`
}

// OrderBook is a synthetic 20-level book around a mark price.
type OrderBook struct {
	Symbol         string      `json:"symbol"`
	Timestamp      time.Time   `json:"timestamp"`
	CurrentPrice   float64     `json:"current_price"`
	Spread         float64     `json:"spread"`
	SpreadPct      float64     `json:"spread_percentage"`
	Bids           []BookLevel `json:"bids"`
	Asks           []BookLevel `json:"asks"`
	BidTotalVolume float64     `json:"bid_total_volume"`
	AskTotalVolume float64     `json:"ask_total_volume"`
	BidTotalUSD    float64     `json:"bid_total_usd"`
	AskTotalUSD    float64     `json:"ask_total_usd"`
	Imbalance      float64     `json:"imbalance"`
}

// GenerateOrderBook builds a plausible book around the given price: bids
// stacked 0.1% apart below, asks above, volume growing away from the touch.
func GenerateOrderBook(symbol string, currentPrice float64) OrderBook {
	book := OrderBook{
		Symbol:       strings.ToUpper(symbol),
		Timestamp:    time.Now().UTC(),
		CurrentPrice: currentPrice,
		Bids:         make([]BookLevel, 0, bookLevels),
		Asks:         make([]BookLevel, 0, bookLevels),
	}

	for i := 0; i < bookLevels; i++ {
		step := float64(i+1) * 0.001
		depth := 1 + float64(i)*0.1

		bidPrice := currentPrice * (1 - step)
		bidQty := (0.1 + rand.Float64()*4.9) * depth
		book.Bids = append(book.Bids, BookLevel{Price: bidPrice, Quantity: bidQty, Total: bidPrice * bidQty})

		askPrice := currentPrice * (1 + step)
		askQty := (0.1 + rand.Float64()*4.9) * depth
		book.Asks = append(book.Asks, BookLevel{Price: askPrice, Quantity: askQty, Total: askPrice * askQty})
	}

	var bidUSD, askUSD float64
	for i := 0; i < bookLevels; i++ {
		book.BidTotalVolume += book.Bids[i].Quantity
		book.AskTotalVolume += book.Asks[i].Quantity
		bidUSD += book.Bids[i].Total
		askUSD += book.Asks[i].Total
	}
	book.BidTotalUSD = bidUSD
	book.AskTotalUSD = askUSD
	book.Spread = book.Asks[0].Price - book.Bids[0].Price
	book.SpreadPct = book.Spread / currentPrice * 100
	if bidUSD+askUSD > 0 {
		book.Imbalance = (bidUSD - askUSD) / (bidUSD + askUSD) * 100
	}
	return book
}
