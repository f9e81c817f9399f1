package dexscreener

// DexScreener API wire types (latest/dex endpoints).

type searchResponse struct {
	Pairs []wirePair `json:"pairs"`
}

type wirePair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   wireToken `json:"baseToken"`
	QuoteToken  wireToken `json:"quoteToken"`

	PriceUSD string `json:"priceUsd"` // decimal string

	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`

	Volume struct {
		H24 float64 `json:"h24"`
		H1  float64 `json:"h1"`
	} `json:"volume"`

	PriceChange struct {
		M5  float64 `json:"m5"`
		H1  float64 `json:"h1"`
		H24 float64 `json:"h24"`
	} `json:"priceChange"`

	MarketCap *float64 `json:"marketCap"` // absent for many fresh pairs
	FDV       *float64 `json:"fdv"`

	PairCreatedAt int64 `json:"pairCreatedAt"` // Unix milliseconds
}

type wireToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}
