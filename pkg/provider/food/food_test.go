package food

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"assistbot/pkg/config"
)

const nutellaJSON = `{
	"status": 1,
	"product": {
		"code": "3017620422003",
		"product_name": "Nutella",
		"brands": "Ferrero",
		"categories": "Petit-déjeuners, Produits à tartiner, Pâtes à tartiner sucrées, Pâtes à tartiner aux noisettes",
		"labels_tags": ["en:no-gluten", "en:vegetarian"],
		"nutriscore_grade": "e",
		"nova_group": 4,
		"ecoscore_grade": "d",
		"nutriments": {
			"energy-kcal_100g": 539,
			"energy-kj_100g": "2252",
			"fat_100g": 30.9,
			"saturated-fat_100g": 10.6,
			"carbohydrates_100g": 57.5,
			"sugars_100g": 56.3,
			"fiber_100g": null,
			"proteins_100g": 6.3,
			"salt_100g": 0.107,
			"sodium_100g": 0.0428,
			"energy_unit": "kcal"
		},
		"allergens_tags": ["en:milk", "en:nuts", "en:soybeans"],
		"additives_tags": ["en:e322", "en:e322i"],
		"countries_tags": ["en:france", "en:united-kingdom"]
	}
}`

func TestExtractBarcode(t *testing.T) {
	client := New(config.FoodProviderConfig{})

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "3017620422003", want: "3017620422003", wantOK: true},
		{input: "code 12345678 svp", want: "12345678", wantOK: true},
		{input: "1234567", wantOK: false},
		{input: "123456789012345", wantOK: false},
		{input: "nutella", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := client.ExtractBarcode(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("ExtractBarcode(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestExtractQuery(t *testing.T) {
	client := New(config.FoodProviderConfig{})

	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "produit nutella", want: "nutella", wantOK: true},
		{input: "Je cherche yaourt nature", want: "yaourt nature", wantOK: true},
		{input: "nutrition coca cola ", want: "coca cola", wantOK: true},
		{input: "produit", wantOK: false},
		{input: "calories", wantOK: false},
	}

	for _, tt := range tests {
		got, ok := client.ExtractQuery(tt.input)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("ExtractQuery(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestByBarcodeFormatsProduct(t *testing.T) {
	var userAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		if r.URL.Path != "/product/3017620422003.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(nutellaJSON))
	}))
	defer server.Close()

	client := New(config.FoodProviderConfig{BaseURL: server.URL, UserAgent: "assistbot-test"})

	result := client.ByBarcode(context.Background(), DemoBarcode)
	require.True(t, result.OK, result.UserMessage)
	require.Equal(t, "assistbot-test", userAgent)

	report := result.Value
	for _, want := range []string{
		"📦 *Nutella*",
		"🏷️ Ferrero",
		"🎯 Nutri-Score: ⚫ E (Mauvais)",
		"⚗️ NOVA: 🔴 Groupe 4 (Ultra-transformés)",
		"🌱 Eco-Score: 🔴 D (Impact élevé)",
		"⚡ Énergie: 539 kcal (2252 kJ)",
		"🥩 Protéines: 6.3 g",
		"🌾 Fibres: Non disponible",
		"🧂 Sel: 0.1 g (43 mg sodium)",
		"🥬 Végétarien",
		"🥛 Lait\n🥜 Fruits à coque\n🌱 Soja",
		"⚠️ 2 additif(s) détecté(s) :\n• E322 - Lécithines (émulsifiant)\n• E322I\n",
		"🗺️ Pays: france, united kingdom",
		"❌ *ÉVITEZ CE PRODUIT.*",
		"🚫 *ULTRA-TRANSFORMÉ*",
		"🍯 *Attention:* Riche en sucres.",
		"🔴 *Attention:* Riche en graisses saturées.",
		"• Petit-déjeuners\n• Produits à tartiner\n• Pâtes à tartiner sucrées\n",
		"Code: 3017620422003",
	} {
		require.Contains(t, report, want)
	}
	require.NotContains(t, report, "📏 *PORTION*")
	require.NotContains(t, report, "Taux de sel élevé")
}

func TestByBarcodeNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	}))
	defer server.Close()

	client := New(config.FoodProviderConfig{BaseURL: server.URL})

	result := client.ByBarcode(context.Background(), "12345678")
	if result.OK {
		t.Fatal("expected not found failure")
	}
	if !strings.Contains(result.UserMessage, "12345678 non trouvé") {
		t.Fatalf("message = %q", result.UserMessage)
	}
}

func TestByBarcodeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(config.FoodProviderConfig{BaseURL: server.URL})

	result := client.ByBarcode(context.Background(), "12345678")
	if result.OK || strings.Contains(result.UserMessage, "boom") || result.UserMessage == "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestByNameSendsSearchParameters(t *testing.T) {
	var query map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values := r.URL.Query()
		query = map[string]string{
			"search_terms": values.Get("search_terms"),
			"page_size":    values.Get("page_size"),
			"json":         values.Get("json"),
			"sort_by":      values.Get("sort_by"),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"products": []map[string]any{
				{"code": "1", "product_name": "Yaourt nature", "brands": "Danone", "nutriscore_grade": "a", "nova_group": "1"},
				{"code": "2", "product_name": "", "brands": ""},
				{"code": "3", "product_name": "Extra"},
			},
		})
	}))
	defer server.Close()

	client := New(config.FoodProviderConfig{SearchURL: server.URL})

	result := client.ByName(context.Background(), "yaourt", 2)
	require.True(t, result.OK, result.UserMessage)
	require.Equal(t, map[string]string{
		"search_terms": "yaourt",
		"page_size":    "2",
		"json":         "1",
		"sort_by":      "popularity",
	}, query)

	require.Len(t, result.Value, 2)
	require.Equal(t, "1", result.Value[0].Code)
	require.Equal(t, "📦 *Yaourt nature*\n🏷️ Danone\n🎯 🟢 | ⚗️ Nova 1", result.Value[0].Display)
	require.Equal(t, "📦 *Nom non disponible*\n🏷️ Marque inconnue\n🎯 ❓ | ⚗️ Nova ?", result.Value[1].Display)
}

func TestByNameNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer server.Close()

	client := New(config.FoodProviderConfig{SearchURL: server.URL})

	result := client.ByName(context.Background(), "introuvable", 5)
	if result.OK {
		t.Fatal("expected failure for empty results")
	}
	if !strings.HasPrefix(result.UserMessage, `❌ Aucun produit trouvé pour "introuvable".`) {
		t.Fatalf("message = %q", result.UserMessage)
	}
}

func TestByCategoryUsesTagFilter(t *testing.T) {
	var tag string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag = r.URL.Query().Get("tag_0")
		if r.URL.Query().Get("tagtype_0") != "categories" {
			t.Errorf("tagtype_0 = %q", r.URL.Query().Get("tagtype_0"))
		}
		_, _ = w.Write([]byte(`{"products": []}`))
	}))
	defer server.Close()

	client := New(config.FoodProviderConfig{SearchURL: server.URL})

	result := client.ByCategory(context.Background(), "cheeses", 0)
	if tag != "cheeses" {
		t.Fatalf("tag_0 = %q, want cheeses", tag)
	}
	if result.OK || !strings.Contains(result.UserMessage, `"Fromages"`) {
		t.Fatalf("result = %+v", result)
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	client := New(config.FoodProviderConfig{})

	categories := client.Categories()
	if len(categories) != 8 {
		t.Fatalf("categories = %d, want 8", len(categories))
	}
	categories[0].Name = "changed"
	if client.Categories()[0].Name != "Chocolats" {
		t.Fatal("Categories must not expose internal state")
	}
}

func TestNutrientRounding(t *testing.T) {
	nutriments := map[string]flexFloat{
		"tiny":  {Value: 0.05, Valid: true},
		"small": {Value: 4.24, Valid: true},
		"large": {Value: 12.5, Valid: true},
		"zero":  {Value: 0, Valid: true},
	}

	tests := map[string]string{
		"tiny":    "< 0.1 g",
		"small":   "4.2 g",
		"large":   "13 g",
		"zero":    "0.0 g",
		"missing": notAvailable,
	}
	for key, want := range tests {
		if got := nutrient(nutriments, key, "g", 1); got != want {
			t.Fatalf("nutrient(%q) = %q, want %q", key, got, want)
		}
	}
}
