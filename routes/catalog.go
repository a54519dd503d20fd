package routes

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/michaelpento.lv/ourbitrage/types"
)

// Venue names understood by the Ourbitrage contract's getPrice
const (
	VenueBuyKyber    = "BUY-KYBER-EXCHANGE"
	VenueSellKyber   = "SELL-KYBER-EXCHANGE"
	VenueBuyUniswap  = "BUY-UNISWAP-EXCHANGE"
	VenueSellUniswap = "SELL-UNISWAP-EXCHANGE"
)

// Catalog is an immutable, ordered list of arbitration routes.
// Order matters: ties between equally profitable routes go to the earlier one.
type Catalog struct {
	routes []types.Route
}

// NewCatalog validates and copies the given routes
func NewCatalog(routes []types.Route) (*Catalog, error) {
	if len(routes) == 0 {
		return nil, fmt.Errorf("route catalog is empty")
	}

	seen := make(map[string]struct{}, len(routes))
	var problems []string
	for i, r := range routes {
		if r.Method == "" {
			problems = append(problems, fmt.Sprintf("route %d: method must be specified", i))
		}
		if r.FundingToken == "" {
			problems = append(problems, fmt.Sprintf("route %d: funding token must be specified", i))
		}
		if r.Buy.Venue == "" || r.Sell.Venue == "" {
			problems = append(problems, fmt.Sprintf("route %d: both legs need a venue", i))
		}
		if _, dup := seen[r.ID()]; dup {
			problems = append(problems, fmt.Sprintf("route %d: duplicate id %s", i, r.ID()))
		}
		seen[r.ID()] = struct{}{}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid route catalog: %s", strings.Join(problems, "; "))
	}

	cp := make([]types.Route, len(routes))
	copy(cp, routes)
	return &Catalog{routes: cp}, nil
}

// Default returns the reference catalog: ETH bought on one venue and sold on
// the other, funded with SAI or DAI.
func Default() *Catalog {
	c, err := NewCatalog(DefaultRoutes())
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultRoutes returns a fresh copy of the reference route definitions
func DefaultRoutes() []types.Route {
	var out []types.Route
	for _, token := range []string{"SAI", "DAI"} {
		out = append(out,
			types.Route{
				Method:       "arbEthFromKyberToUniswap",
				FundingToken: token,
				Buy:          types.Leg{From: "ETH", To: token, Venue: VenueBuyKyber},
				Sell:         types.Leg{From: "ETH", To: token, Venue: VenueSellUniswap},
			},
			types.Route{
				Method:       "arbEthFromUniswapToKyber",
				FundingToken: token,
				Buy:          types.Leg{From: "ETH", To: token, Venue: VenueBuyUniswap},
				Sell:         types.Leg{From: "ETH", To: token, Venue: VenueSellKyber},
			},
		)
	}
	return out
}

// Len returns the number of routes
func (c *Catalog) Len() int {
	return len(c.routes)
}

// At returns the route at index i
func (c *Catalog) At(i int) types.Route {
	return c.routes[i]
}

// Routes returns a copy of the routes in catalog order
func (c *Catalog) Routes() []types.Route {
	cp := make([]types.Route, len(c.routes))
	copy(cp, c.routes)
	return cp
}

// Methods returns the distinct contract methods used by the catalog
func (c *Catalog) Methods() []string {
	seen := make(map[string]struct{})
	var methods []string
	for _, r := range c.routes {
		if _, ok := seen[r.Method]; ok {
			continue
		}
		seen[r.Method] = struct{}{}
		methods = append(methods, r.Method)
	}
	return methods
}

// Fingerprint hashes the catalog definition so restarts can be compared in logs
func (c *Catalog) Fingerprint() uint64 {
	d := xxhash.New()
	for _, r := range c.routes {
		fmt.Fprintf(d, "%s|%s|%s>%s@%s|%s>%s@%s;",
			r.Method, r.FundingToken,
			r.Buy.From, r.Buy.To, r.Buy.Venue,
			r.Sell.From, r.Sell.To, r.Sell.Venue)
	}
	return d.Sum64()
}
