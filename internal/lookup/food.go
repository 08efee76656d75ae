package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// DefaultFoodBaseURL is the OpenFoodFacts API root.
const DefaultFoodBaseURL = "https://world.openfoodfacts.org"

const foodSearchPath = "/cgi/search.pl"

// KcalPerKJ converts kilojoules to kilocalories.
const KcalPerKJ = 0.239006

// FoodClient looks up energy density from the OpenFoodFacts product search.
type FoodClient struct {
	client *resty.Client
}

// NewFoodClient creates a FoodClient. OpenFoodFacts needs no credential.
func NewFoodClient(opts ...Option) *FoodClient {
	cfg := buildOpts(DefaultFoodBaseURL, opts)
	return &FoodClient{client: newHTTPClient(cfg)}
}

// flexFloat accepts a JSON number or a numeric string. Anything else, including
// NaN and infinities, leaves it unset.
type flexFloat struct {
	value float64
	set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value, f.set = v, true
	return nil
}

type foodSearchResponse struct {
	Products []struct {
		ProductName string `json:"product_name"`
		Nutriments  struct {
			EnergyKcal100g flexFloat `json:"energy-kcal_100g"`
			Energy100g     flexFloat `json:"energy_100g"`
		} `json:"nutriments"`
	} `json:"products"`
}

// FetchFoodEnergy implements FoodFetcher. It takes the first search hit and reads
// its kcal per 100 g, converting from kJ when only that is published.
func (f *FoodClient) FetchFoodEnergy(ctx context.Context, query string) FoodResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return FoodNotFound(ReasonEmptyQuery)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  query,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     "1",
		}).
		Get(foodSearchPath)
	if err != nil {
		slog.Warn("FoodClient.FetchFoodEnergy: request failed", "query", query, "error", err)
		return FoodNotFound(ReasonNetwork)
	}
	if !resp.IsSuccess() {
		slog.Warn("FoodClient.FetchFoodEnergy: unexpected status", "query", query, "status", resp.StatusCode())
		return FoodNotFound(ReasonBadStatus)
	}

	var body foodSearchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		slog.Warn("FoodClient.FetchFoodEnergy: malformed body", "query", query, "error", err)
		return FoodNotFound(ReasonMalformed)
	}
	if len(body.Products) == 0 {
		slog.Debug("FoodClient.FetchFoodEnergy: no products", "query", query)
		return FoodNotFound(ReasonNotFound)
	}

	product := body.Products[0]
	name := strings.TrimSpace(product.ProductName)
	if name == "" {
		name = query
	}

	var kcal float64
	switch n := product.Nutriments; {
	case n.EnergyKcal100g.set:
		kcal = n.EnergyKcal100g.value
	case n.Energy100g.set:
		kcal = n.Energy100g.value * KcalPerKJ
	default:
		slog.Debug("FoodClient.FetchFoodEnergy: product has no energy data", "query", query, "product", name)
		return FoodNotFound(ReasonNoEnergyData)
	}
	if !(kcal > 0) || math.IsInf(kcal, 0) {
		slog.Debug("FoodClient.FetchFoodEnergy: non-positive energy", "query", query, "product", name, "kcal", kcal)
		return FoodNotFound(ReasonNoEnergyData)
	}

	slog.Debug("FoodClient.FetchFoodEnergy: ok", "query", query, "product", name, "kcalPer100g", kcal)
	return FoundFood(name, kcal)
}
