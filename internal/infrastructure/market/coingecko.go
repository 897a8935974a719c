package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"finnews/internal/config"
	"finnews/internal/domain"
	"finnews/internal/ports"
)

// CoinGeckoClient reads spot prices from the CoinGecko simple-price API.
type CoinGeckoClient struct {
	client   *http.Client
	apiURL   string
	coin     string
	currency string
}

var _ ports.QuoteSource = (*CoinGeckoClient)(nil)

// NewCoinGeckoClient wires an HTTP client; a nil client gets a 10s default.
func NewCoinGeckoClient(client *http.Client, cfg config.MarketConfig) *CoinGeckoClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &CoinGeckoClient{
		client:   client,
		apiURL:   cfg.APIURL,
		coin:     cfg.Coin,
		currency: cfg.Currency,
	}
}

// Latest fetches the current price for the configured coin and currency.
func (c *CoinGeckoClient) Latest(ctx context.Context) (domain.PricePoint, error) {
	endpoint, err := c.buildPriceURL()
	if err != nil {
		return domain.PricePoint{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.PricePoint{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.PricePoint{}, fmt.Errorf("coingecko returned %s", resp.Status)
	}

	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.PricePoint{}, fmt.Errorf("decode price: %w", err)
	}

	price, ok := payload[c.coin][c.currency]
	if !ok {
		return domain.PricePoint{}, fmt.Errorf("price for %s/%s missing in response", c.coin, c.currency)
	}

	return domain.PricePoint{
		Coin:      c.coin,
		Currency:  c.currency,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (c *CoinGeckoClient) buildPriceURL() (string, error) {
	parsed, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid market api url: %w", err)
	}

	query := parsed.Query()
	query.Set("ids", c.coin)
	query.Set("vs_currencies", c.currency)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
