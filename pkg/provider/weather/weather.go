package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"assistbot/pkg/config"
	"assistbot/pkg/provider"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	defaultLang    = "fr"

	unavailableMessage = "❌ Erreur lors de la récupération de la météo. Réessayez plus tard."
)

var cityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)m[ée]t[ée]o\s+(?:(?:à|de|pour)\s+)?([a-zA-ZÀ-ÿ\s-]+)`),
	regexp.MustCompile(`(?i)weather\s+(?:(?:in|for)\s+)?([a-zA-ZÀ-ÿ\s-]+)`),
	regexp.MustCompile(`(?i)temp[ée]rature\s+(?:(?:à|de|pour)\s+)?([a-zA-ZÀ-ÿ\s-]+)`),
	regexp.MustCompile(`(?i)temps\s+(?:(?:à|de|pour)\s+)?([a-zA-ZÀ-ÿ\s-]+)`),
}

var conditionEmoji = map[string]string{
	"Clear":        "☀️",
	"Clouds":       "☁️",
	"Rain":         "🌧️",
	"Drizzle":      "🌦️",
	"Thunderstorm": "⛈️",
	"Snow":         "❄️",
	"Mist":         "🌫️",
	"Fog":          "🌫️",
	"Haze":         "🌫️",
}

var (
	frenchWeekdays = [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}
	frenchMonths   = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}
)

// Client looks up current conditions on the OpenWeather API.
type Client struct {
	baseURL    string
	apiKey     string
	lang       string
	httpClient *http.Client
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func New(cfg config.WeatherProviderConfig, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     resolveAPIKey(cfg.APIKeyEnv),
		lang:       strings.TrimSpace(cfg.Lang),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.lang == "" {
		client.lang = defaultLang
	}
	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ResolveCity extracts a city name following a weather keyword.
func (c *Client) ResolveCity(text string) (string, bool) {
	for _, pattern := range cityPatterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		if city := strings.TrimSpace(match[1]); city != "" {
			return city, true
		}
	}

	return "", false
}

func (c *Client) Fetch(ctx context.Context, city string) provider.Result[string] {
	city = strings.TrimSpace(city)
	if c.apiKey == "" {
		return provider.Failure[string](demoReport(city))
	}

	log := providerLogger().With("operation", "current_weather")
	startedAt := time.Now()
	log.Debug("provider request started", "city", city)

	report, status, err := c.current(ctx, city)
	if err != nil {
		log.Warn("provider request failed",
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"status", status,
			"error", err,
		)
		if status == http.StatusNotFound {
			return provider.Failure[string](fmt.Sprintf("❌ Désolé, je n'ai pas trouvé la ville \"%s\". Vérifiez l'orthographe !", city))
		}
		return provider.Failure[string](unavailableMessage)
	}
	log.Debug("provider request completed", "duration_ms", time.Since(startedAt).Milliseconds())

	return provider.Success(c.format(report))
}

type currentWeather struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
}

func (c *Client) current(ctx context.Context, city string) (currentWeather, int, error) {
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	query.Set("lang", c.lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+query.Encode(), nil)
	if err != nil {
		return currentWeather{}, 0, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return currentWeather{}, 0, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return currentWeather{}, resp.StatusCode, fmt.Errorf("weather api returned status %d", resp.StatusCode)
	}

	var report currentWeather
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return currentWeather{}, resp.StatusCode, fmt.Errorf("decode weather response: %w", err)
	}
	if len(report.Weather) == 0 {
		return currentWeather{}, resp.StatusCode, fmt.Errorf("weather response has no conditions")
	}

	return report, resp.StatusCode, nil
}

func (c *Client) format(report currentWeather) string {
	condition := report.Weather[0]
	emoji, ok := conditionEmoji[condition.Main]
	if !ok {
		emoji = "🌤️"
	}

	lines := []string{
		fmt.Sprintf("🌤️ Météo à %s, %s", report.Name, report.Sys.Country),
		"",
		fmt.Sprintf("%s %s", emoji, capitalize(condition.Description)),
		fmt.Sprintf("🌡️ Température: %d°C", roundHalfUp(report.Main.Temp)),
		fmt.Sprintf("🤗 Ressenti: %d°C", roundHalfUp(report.Main.FeelsLike)),
		fmt.Sprintf("💨 Vent: %d km/h", roundHalfUp(report.Wind.Speed*3.6)),
		fmt.Sprintf("💧 Humidité: %d%%", report.Main.Humidity),
		"",
		"📅 " + frenchDate(c.now()),
	}

	return strings.Join(lines, "\n")
}

func demoReport(city string) string {
	return fmt.Sprintf("🌤️ Météo de %s:\n\n☀️ Ensoleillé, 22°C\n🌡️ Ressenti: 24°C\n💨 Vent: 15 km/h\n💧 Humidité: 65%%\n\n(Service météo en mode démo - configurez OPENWEATHER_API_KEY pour des données réelles)", city)
}

func frenchDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s %d", frenchWeekdays[t.Weekday()], t.Day(), frenchMonths[t.Month()-1], t.Year())
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func resolveAPIKey(envName string) string {
	envName = strings.TrimSpace(envName)
	if envName == "" {
		envName = "OPENWEATHER_API_KEY"
	}

	return strings.TrimSpace(os.Getenv(envName))
}

func providerLogger() *slog.Logger {
	return slog.Default().With("component", "provider.weather")
}
