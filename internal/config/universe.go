package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Universe is the fixed symbol set refreshed by the market data sync.
type Universe struct {
	// Crypto symbols use the Twelve Data BASE/QUOTE format.
	Crypto []string `yaml:"crypto"`
	// CryptoNames overrides provider names, which are often missing for crypto pairs.
	CryptoNames map[string]string `yaml:"crypto_names"`
	Stocks      []string          `yaml:"stocks"`
}

const maxUniverseClassSize = 20

// DefaultUniverse returns the top 20 crypto pairs and top 20 US stocks.
func DefaultUniverse() Universe {
	return Universe{
		Crypto: []string{
			"BTC/USD", "ETH/USD", "USDT/USD", "BNB/USD", "SOL/USD",
			"XRP/USD", "USDC/USD", "ADA/USD", "AVAX/USD", "DOGE/USD",
			"DOT/USD", "TRX/USD", "LINK/USD", "MATIC/USD", "SHIB/USD",
			"LTC/USD", "BCH/USD", "ATOM/USD", "UNI/USD", "XLM/USD",
		},
		CryptoNames: map[string]string{
			"BTC/USD":   "Bitcoin",
			"ETH/USD":   "Ethereum",
			"USDT/USD":  "Tether",
			"BNB/USD":   "BNB",
			"SOL/USD":   "Solana",
			"XRP/USD":   "XRP",
			"USDC/USD":  "USD Coin",
			"ADA/USD":   "Cardano",
			"AVAX/USD":  "Avalanche",
			"DOGE/USD":  "Dogecoin",
			"DOT/USD":   "Polkadot",
			"TRX/USD":   "TRON",
			"LINK/USD":  "Chainlink",
			"MATIC/USD": "Polygon",
			"SHIB/USD":  "Shiba Inu",
			"LTC/USD":   "Litecoin",
			"BCH/USD":   "Bitcoin Cash",
			"ATOM/USD":  "Cosmos",
			"UNI/USD":   "Uniswap",
			"XLM/USD":   "Stellar",
		},
		Stocks: []string{
			"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
			"META", "TSLA", "BRK.B", "UNH", "LLY",
			"JPM", "V", "XOM", "AVGO", "MA",
			"JNJ", "PG", "HD", "COST", "MRK",
		},
	}
}

// LoadUniverse reads a universe from a YAML file.
func LoadUniverse(path string) (Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Universe{}, fmt.Errorf("read universe file %s: %w", path, err)
	}

	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return Universe{}, fmt.Errorf("parse universe file %s: %w", path, err)
	}
	if err := u.Validate(); err != nil {
		return Universe{}, fmt.Errorf("universe file %s: %w", path, err)
	}
	return u, nil
}

// Validate checks the universe stays within the provider budget.
func (u Universe) Validate() error {
	if len(u.Crypto) == 0 && len(u.Stocks) == 0 {
		return fmt.Errorf("universe is empty")
	}
	if len(u.Crypto) > maxUniverseClassSize {
		return fmt.Errorf("too many crypto symbols: %d (max %d)", len(u.Crypto), maxUniverseClassSize)
	}
	if len(u.Stocks) > maxUniverseClassSize {
		return fmt.Errorf("too many stock symbols: %d (max %d)", len(u.Stocks), maxUniverseClassSize)
	}
	return nil
}

// CryptoName resolves the display name for a crypto pair, falling back to
// the provider supplied name.
func (u Universe) CryptoName(symbol, providerName string) string {
	if name, ok := u.CryptoNames[symbol]; ok {
		return name
	}
	return providerName
}
