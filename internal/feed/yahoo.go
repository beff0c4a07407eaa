package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"RiskSentinel/internal/model"
)

const (
	yahooBaseURL        = "https://query1.finance.yahoo.com"
	DefaultPollInterval = time.Minute
)

// YahooFeed polls the Yahoo Finance chart API and emits a tick whenever the
// latest close of a symbol changes.
type YahooFeed struct {
	BaseURL   string
	Client    *http.Client
	Interval  time.Duration
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	symbols []string
	logger  *zap.Logger
}

// NewYahooFeed creates a polling feed with optional proxy support.
func NewYahooFeed(symbols []string, interval time.Duration, proxyURL string, logger *zap.Logger) *YahooFeed {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &YahooFeed{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Interval: interval,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
		},
		symbols: append([]string(nil), symbols...),
		logger:  logger,
	}
}

func (f *YahooFeed) Name() string { return "yahoo" }

func (f *YahooFeed) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchLatest returns the most recent non-null close for symbol.
func (f *YahooFeed) FetchLatest(ctx context.Context, symbol string) (model.Tick, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.Tick{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return model.Tick{}, errors.Wrap(err, "yahoo fetch")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Tick{}, errors.Wrap(err, "yahoo read body")
	}
	if resp.StatusCode != http.StatusOK {
		return model.Tick{}, errors.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return model.Tick{}, errors.Wrap(err, "yahoo decode")
	}
	if chart.Chart.Error != nil {
		return model.Tick{}, errors.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return model.Tick{}, errors.New("yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		// null bars are skipped, newest first
		for i := len(closes) - 1; i >= 0 && i < len(result.Timestamp); i-- {
			if closes[i] != nil && *closes[i] > 0 {
				return model.Tick{Symbol: symbol, Price: *closes[i], Timestamp: time.Unix(result.Timestamp[i], 0).UTC()}, nil
			}
		}
	}
	if result.Meta.RegularMarketPrice > 0 {
		return model.Tick{
			Symbol:    symbol,
			Price:     result.Meta.RegularMarketPrice,
			Timestamp: time.Unix(result.Meta.RegularMarketTime, 0).UTC(),
		}, nil
	}
	return model.Tick{}, errors.Errorf("yahoo: no price data for %s", symbol)
}

// LiveSeeds replaces each configured seed price with the latest close so the
// first polled tick does not register as a jump from a stale price. Symbols
// that cannot be fetched keep their configured price.
func (f *YahooFeed) LiveSeeds(ctx context.Context, seeds []model.Seed) []model.Seed {
	out := make([]model.Seed, len(seeds))
	for i, sd := range seeds {
		out[i] = sd
		tick, err := f.FetchLatest(ctx, sd.Symbol)
		if err != nil {
			f.logger.Warn("live seed unavailable, using configured price",
				zap.String("symbol", sd.Symbol), zap.Float64("price", sd.Price), zap.Error(err))
			continue
		}
		out[i].Price = tick.Price
	}
	return out
}

// Subscribe polls every Interval until ctx is cancelled. Unchanged prices are not re-emitted.
func (f *YahooFeed) Subscribe(ctx context.Context) (<-chan model.Tick, error) {
	if len(f.symbols) == 0 {
		return nil, errors.New("yahoo feed: no symbols")
	}
	out := make(chan model.Tick)
	go func() {
		defer close(out)
		last := make(map[string]float64, len(f.symbols))
		ticker := time.NewTicker(f.Interval)
		defer ticker.Stop()

		for {
			for _, sym := range f.symbols {
				tick, err := f.FetchLatest(ctx, sym)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					f.logger.Warn("yahoo poll failed", zap.String("symbol", sym), zap.Error(err))
					continue
				}
				if last[sym] == tick.Price {
					continue
				}
				last[sym] = tick.Price
				select {
				case out <- tick:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}
