package food

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"assistbot/pkg/config"
	"assistbot/pkg/provider"
)

const (
	defaultBaseURL   = "https://world.openfoodfacts.org/api/v2"
	defaultSearchURL = "https://world.openfoodfacts.org/cgi/search.pl"
	defaultUserAgent = "assistbot/1.0"
	defaultLimit     = 5

	// DemoBarcode is a well known product used by the demo shortcut.
	DemoBarcode = "3017620422003"
)

var (
	detailedFields = strings.Join([]string{
		"code", "product_name", "product_name_fr", "brands", "categories", "labels_tags",
		"nutriscore_grade", "nova_group", "ecoscore_grade",
		"nutriments", "allergens_tags", "additives_tags",
		"serving_size", "packaging", "origins", "manufacturing_places",
		"stores", "countries_tags",
	}, ",")

	searchFields = strings.Join([]string{
		"product_name", "brands", "nutriscore_grade", "nova_group",
		"ecoscore_grade", "code", "categories", "labels_tags",
	}, ",")
)

var barcodePattern = regexp.MustCompile(`\b\d{8,14}\b`)

var queryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)produit\s+(.+)`),
	regexp.MustCompile(`(?i)cherche\s+(.+)`),
	regexp.MustCompile(`(?i)recherche\s+(.+)`),
	regexp.MustCompile(`(?i)info\s+(.+)`),
	regexp.MustCompile(`(?i)nutrition\s+(.+)`),
}

var popularCategories = []provider.Category{
	{ID: "chocolates", Name: "Chocolats", Emoji: "🍫"},
	{ID: "yogurts", Name: "Yaourts", Emoji: "🥛"},
	{ID: "cereals", Name: "Céréales", Emoji: "🥣"},
	{ID: "cheeses", Name: "Fromages", Emoji: "🧀"},
	{ID: "breads", Name: "Pains", Emoji: "🍞"},
	{ID: "beverages", Name: "Boissons", Emoji: "🥤"},
	{ID: "fruits", Name: "Fruits", Emoji: "🍎"},
	{ID: "vegetables", Name: "Légumes", Emoji: "🥕"},
}

var errProductNotFound = errors.New("product not found")

// Client queries the OpenFoodFacts product database.
type Client struct {
	baseURL    string
	searchURL  string
	userAgent  string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func New(cfg config.FoodProviderConfig, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		searchURL:  strings.TrimSpace(cfg.SearchURL),
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.searchURL == "" {
		client.searchURL = defaultSearchURL
	}
	if client.userAgent == "" {
		client.userAgent = defaultUserAgent
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) ExtractBarcode(text string) (string, bool) {
	code := barcodePattern.FindString(text)
	return code, code != ""
}

func (c *Client) ExtractQuery(text string) (string, bool) {
	for _, pattern := range queryPatterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		if term := strings.TrimSpace(match[1]); term != "" {
			return term, true
		}
	}

	return "", false
}

// Categories returns the popular categories offered for browsing.
func (c *Client) Categories() []provider.Category {
	return append([]provider.Category(nil), popularCategories...)
}

func (c *Client) ByBarcode(ctx context.Context, code string) provider.Result[string] {
	code = strings.TrimSpace(code)
	log := providerLogger().With("operation", "product")
	startedAt := time.Now()
	log.Debug("provider request started", "barcode", code)

	product, err := c.product(ctx, code)
	if errors.Is(err, errProductNotFound) {
		log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "found", false)
		return provider.Failure[string](fmt.Sprintf("❌ Produit avec le code-barres %s non trouvé dans la base de données.", code))
	}
	if err != nil {
		log.Warn("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return provider.Failure[string]("❌ Erreur lors de la recherche du produit. Vérifiez le code-barres.")
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "found", true)

	if product.Code == "" {
		product.Code = code
	}

	return provider.Success(formatProduct(product))
}

func (c *Client) ByName(ctx context.Context, term string, limit int) provider.Result[[]provider.DisplayItem] {
	term = strings.TrimSpace(term)
	params := url.Values{}
	params.Set("search_terms", term)
	params.Set("search_simple", "1")

	items, err := c.search(ctx, "search_by_name", params, limit)
	if err != nil {
		return provider.Failure[[]provider.DisplayItem]("❌ Erreur lors de la recherche de produits. Vérifiez votre connexion internet.")
	}
	if len(items) == 0 {
		return provider.Failure[[]provider.DisplayItem](fmt.Sprintf("❌ Aucun produit trouvé pour \"%s\".\n\n💡 Essayez :\n• Un nom plus simple (ex: \"nutella\" au lieu de \"pâte à tartiner nutella\")\n• Une marque connue\n• Un terme générique (ex: \"chocolat\", \"yaourt\")", term))
	}

	return provider.Success(items)
}

func (c *Client) ByCategory(ctx context.Context, id string, limit int) provider.Result[[]provider.DisplayItem] {
	id = strings.TrimSpace(id)
	params := url.Values{}
	params.Set("tagtype_0", "categories")
	params.Set("tag_contains_0", "contains")
	params.Set("tag_0", id)

	items, err := c.search(ctx, "search_by_category", params, limit)
	if err != nil {
		return provider.Failure[[]provider.DisplayItem]("❌ Erreur lors de la recherche par catégorie. Vérifiez votre connexion internet.")
	}
	if len(items) == 0 {
		return provider.Failure[[]provider.DisplayItem](fmt.Sprintf("❌ Aucun produit trouvé dans la catégorie \"%s\".\n\n💡 Essayez une autre catégorie ou une recherche par nom de produit.", categoryName(id)))
	}

	return provider.Success(items)
}

func (c *Client) product(ctx context.Context, code string) (product, error) {
	endpoint := fmt.Sprintf("%s/product/%s.json?fields=%s", c.baseURL, url.PathEscape(code), url.QueryEscape(detailedFields))

	var body struct {
		Status  int     `json:"status"`
		Product product `json:"product"`
	}
	status, err := c.getJSON(ctx, endpoint, &body)
	if status == http.StatusNotFound {
		return product{}, errProductNotFound
	}
	if err != nil {
		return product{}, err
	}
	if body.Status == 0 {
		return product{}, errProductNotFound
	}

	return body.Product, nil
}

func (c *Client) search(ctx context.Context, operation string, params url.Values, limit int) ([]provider.DisplayItem, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("fields", searchFields)
	params.Set("sort_by", "popularity")

	log := providerLogger().With("operation", operation)
	startedAt := time.Now()
	log.Debug("provider request started", "limit", limit)

	var body struct {
		Products []product `json:"products"`
	}
	if _, err := c.getJSON(ctx, c.searchURL+"?"+params.Encode(), &body); err != nil {
		log.Warn("provider request failed", "duration_ms", time.Since(startedAt).Milliseconds(), "error", err)
		return nil, err
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds(), "results", len(body.Products))

	items := make([]provider.DisplayItem, 0, len(body.Products))
	for _, p := range body.Products {
		if len(items) == limit {
			break
		}
		items = append(items, searchItem(p))
	}

	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("openfoodfacts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("openfoodfacts returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return resp.StatusCode, fmt.Errorf("decode openfoodfacts response: %w", err)
	}

	return resp.StatusCode, nil
}

func categoryName(id string) string {
	for _, category := range popularCategories {
		if category.ID == id {
			return category.Name
		}
	}

	return id
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.food")
}
