package market

import "market_dashboard/models"

// DisplayNames maps a trading pair to the display name of its base asset.
// When the exchange metadata could not be fetched the mapping is empty and
// Available reports false, so callers can tell "no names" from "no such symbol".
type DisplayNames struct {
	names     map[string]string
	available bool
}

// NewDisplayNames keeps the symbols quoted in quoteAsset. An empty quoteAsset keeps all.
func NewDisplayNames(symbols []models.SymbolInfo, quoteAsset string) DisplayNames {
	names := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if quoteAsset != "" && s.QuoteAsset != quoteAsset {
			continue
		}
		names[s.Symbol] = s.BaseAsset
	}
	return DisplayNames{names: names, available: true}
}

func UnavailableNames() DisplayNames {
	return DisplayNames{}
}

func (d DisplayNames) Available() bool {
	return d.available
}

// Lookup returns the display name of symbol, "" when unknown.
func (d DisplayNames) Lookup(symbol string) (string, bool) {
	name, ok := d.names[symbol]
	return name, ok
}
