package gas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// DefaultStationURL is the reference gas price tier service
const DefaultStationURL = "https://ethgasstation.info/json/ethgasAPI.json"

// ErrBadTier is returned when the gas station response lacks a usable tier
var ErrBadTier = errors.New("invalid gas price tier")

// Tier is a base-10 integer that the service may encode as a JSON string or number.
// Fractional parts are dropped.
type Tier struct {
	Value int64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Tier) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	b = bytes.Trim(b, `"`)
	v, err := parseLeadingInt(string(b))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadTier, string(b))
	}
	t.Value = v
	t.Set = true
	return nil
}

// parseLeadingInt reads an optionally signed run of leading decimal digits
func parseLeadingInt(s string) (int64, error) {
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("no digits")
	}
	return strconv.ParseInt(s[:end], 10, 64)
}

// Tiers is the subset of the gas station document used for pricing
type Tiers struct {
	SafeLow     Tier `json:"safeLow"`
	SafeLowWait Tier `json:"safeLowWait"`
	Average     Tier `json:"average"`
	AvgWait     Tier `json:"avgWait"`
	Fast        Tier `json:"fast"`
	FastWait    Tier `json:"fastWait"`
}

// Select picks safeLow unless its expected wait exceeds waitTolerance, in
// which case average is used.
func (t Tiers) Select(waitTolerance int64) (int64, string, error) {
	if !t.SafeLow.Set || !t.SafeLowWait.Set {
		return 0, "", fmt.Errorf("%w: safeLow/safeLowWait missing", ErrBadTier)
	}
	if t.SafeLowWait.Value > waitTolerance {
		if !t.Average.Set {
			return 0, "", fmt.Errorf("%w: average missing", ErrBadTier)
		}
		return t.Average.Value, "average", nil
	}
	return t.SafeLow.Value, "safeLow", nil
}

// OracleConfig configures the gas price oracle
type OracleConfig struct {
	URL           string
	Timeout       time.Duration
	WaitTolerance int64
	// UnitScale converts a tier value to wei
	UnitScale *big.Int
	// Jitter returns a value in [1,9]; defaults to a uniform random draw
	Jitter func() int64
}

// Oracle fetches the current network gas price from the tier service
type Oracle struct {
	cfg        OracleConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewOracle creates a new gas price oracle
func NewOracle(cfg OracleConfig, logger *zap.Logger) *Oracle {
	if cfg.URL == "" {
		cfg.URL = DefaultStationURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UnitScale == nil {
		cfg.UnitScale = big.NewInt(1e8)
	}
	if cfg.Jitter == nil {
		cfg.Jitter = randomJitter
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Oracle{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

func randomJitter() int64 {
	return rand.Int63n(9) + 1
}

// FetchTiers performs one request against the tier service
func (o *Oracle) FetchTiers(ctx context.Context) (Tiers, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.URL, nil)
	if err != nil {
		return Tiers{}, fmt.Errorf("failed to create gas station request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return Tiers{}, fmt.Errorf("failed to query gas station: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Tiers{}, fmt.Errorf("gas station request failed: %s: %s", resp.Status, string(body))
	}

	var tiers Tiers
	if err := json.NewDecoder(resp.Body).Decode(&tiers); err != nil {
		return Tiers{}, fmt.Errorf("failed to decode gas station response: %w", err)
	}
	return tiers, nil
}

// CurrentGasPrice returns (tier + jitter) * unitScale in wei. Errors are not
// retried; the caller treats them as fatal for the cycle.
func (o *Oracle) CurrentGasPrice(ctx context.Context) (*big.Int, error) {
	tiers, err := o.FetchTiers(ctx)
	if err != nil {
		return nil, err
	}

	tier, name, err := tiers.Select(o.cfg.WaitTolerance)
	if err != nil {
		return nil, err
	}

	jitter := o.cfg.Jitter()
	price := new(big.Int).Mul(big.NewInt(tier+jitter), o.cfg.UnitScale)

	o.logger.Debug("Gas price tier selected",
		zap.String("tier", name),
		zap.Int64("value", tier),
		zap.Int64("safe_low_wait", tiers.SafeLowWait.Value),
		zap.Int64("jitter", jitter),
		zap.String("gas_price_wei", price.String()),
	)
	return price, nil
}
