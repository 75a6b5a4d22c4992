package food

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"assistbot/pkg/provider"
)

// product holds the OpenFoodFacts fields used in replies. Numeric fields are
// published either as numbers or as strings depending on the product.
type product struct {
	Code                string               `json:"code"`
	Name                string               `json:"product_name"`
	NameFR              string               `json:"product_name_fr"`
	Brands              string               `json:"brands"`
	Categories          string               `json:"categories"`
	LabelsTags          []string             `json:"labels_tags"`
	NutriscoreGrade     string               `json:"nutriscore_grade"`
	NovaGroup           flexString           `json:"nova_group"`
	EcoscoreGrade       string               `json:"ecoscore_grade"`
	Nutriments          map[string]flexFloat `json:"nutriments"`
	AllergensTags       []string             `json:"allergens_tags"`
	AdditivesTags       []string             `json:"additives_tags"`
	ServingSize         string               `json:"serving_size"`
	Packaging           string               `json:"packaging"`
	Origins             string               `json:"origins"`
	ManufacturingPlaces string               `json:"manufacturing_places"`
	Stores              string               `json:"stores"`
	CountriesTags       []string             `json:"countries_tags"`
}

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = flexString(strings.TrimSpace(text))
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("unexpected value %s", data)
	}
	*s = flexString(number.String())
	return nil
}

// flexFloat is a nutrient value; Valid is false when the field is missing or not numeric.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	if string(data) == "null" {
		return nil
	}

	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*f = flexFloat{Value: number, Valid: true}
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
			*f = flexFloat{Value: parsed, Valid: true}
		}
	}

	return nil
}

var (
	nutriscoreDots = map[string]string{"A": "🟢", "B": "🟡", "C": "🟠", "D": "🔴", "E": "⚫"}

	nutriscoreLabels = map[string]string{
		"A": "🟢 A (Excellent)",
		"B": "🟡 B (Bon)",
		"C": "🟠 C (Moyen)",
		"D": "🔴 D (Médiocre)",
		"E": "⚫ E (Mauvais)",
	}

	novaLabels = map[string]string{
		"1": "🟢 Groupe 1 (Non transformés)",
		"2": "🟡 Groupe 2 (Ingrédients culinaires)",
		"3": "🟠 Groupe 3 (Transformés)",
		"4": "🔴 Groupe 4 (Ultra-transformés)",
	}

	ecoscoreLabels = map[string]string{
		"A": "🟢 A (Très faible impact)",
		"B": "🟡 B (Faible impact)",
		"C": "🟠 C (Impact modéré)",
		"D": "🔴 D (Impact élevé)",
		"E": "⚫ E (Impact très élevé)",
	}
)

// Ordered so rendered sections are stable.
var notableLabels = []struct{ tag, text string }{
	{"en:organic", "🌱 Bio/Biologique"},
	{"en:fair-trade", "🤝 Commerce équitable"},
	{"en:gluten-free", "🚫 Sans gluten"},
	{"en:lactose-free", "🥛 Sans lactose"},
	{"en:vegan", "🌿 Vegan"},
	{"en:vegetarian", "🥬 Végétarien"},
	{"en:palm-oil-free", "🌴 Sans huile de palme"},
	{"en:no-additives", "✅ Sans additifs"},
	{"en:natural", "🍃 Naturel"},
	{"en:kosher", "✡️ Casher"},
	{"en:halal", "☪️ Halal"},
}

var allergenNames = map[string]string{
	"en:gluten":                        "🌾 Gluten",
	"en:milk":                          "🥛 Lait",
	"en:eggs":                          "🥚 Œufs",
	"en:nuts":                          "🥜 Fruits à coque",
	"en:peanuts":                       "🥜 Arachides",
	"en:soybeans":                      "🌱 Soja",
	"en:fish":                          "🐟 Poisson",
	"en:crustaceans":                   "🦐 Crustacés",
	"en:molluscs":                      "🐚 Mollusques",
	"en:sesame-seeds":                  "🌰 Graines de sésame",
	"en:sulphur-dioxide-and-sulphites": "⚠️ Sulfites",
	"en:celery":                        "🥬 Céleri",
	"en:mustard":                       "🌶️ Moutarde",
	"en:lupin":                         "🌸 Lupin",
}

var additiveNames = map[string]string{
	"E100":  "Curcumine (colorant jaune)",
	"E101":  "Riboflavine (colorant jaune)",
	"E102":  "Tartrazine (colorant jaune)",
	"E110":  "Jaune orangé S (colorant)",
	"E120":  "Cochenille (colorant rouge)",
	"E150A": "Caramel (colorant)",
	"E160A": "Carotènes (colorant orange)",
	"E200":  "Acide sorbique (conservateur)",
	"E202":  "Sorbate de potassium (conservateur)",
	"E211":  "Benzoate de sodium (conservateur)",
	"E220":  "Dioxyde de soufre (conservateur)",
	"E250":  "Nitrite de sodium (conservateur)",
	"E300":  "Acide ascorbique (antioxydant)",
	"E322":  "Lécithines (émulsifiant)",
	"E330":  "Acide citrique (acidifiant)",
	"E407":  "Carraghénanes (épaississant)",
	"E412":  "Gomme de guar (épaississant)",
	"E415":  "Gomme xanthane (épaississant)",
	"E440":  "Pectines (gélifiant)",
	"E471":  "Mono- et diglycérides (émulsifiant)",
	"E500":  "Carbonates de sodium (régulateur)",
	"E621":  "Glutamate monosodique (exhausteur)",
}

const notAvailable = "Non disponible"

func searchItem(p product) provider.DisplayItem {
	name := firstNonEmpty(p.Name, "Nom non disponible")
	brands := firstNonEmpty(p.Brands, "Marque inconnue")
	dot, ok := nutriscoreDots[strings.ToUpper(p.NutriscoreGrade)]
	if !ok {
		dot = "❓"
	}
	nova := firstNonEmpty(string(p.NovaGroup), "?")

	return provider.DisplayItem{
		Code:    p.Code,
		Name:    name,
		Display: fmt.Sprintf("📦 *%s*\n🏷️ %s\n🎯 %s | ⚗️ Nova %s", name, brands, dot, nova),
	}
}

func formatProduct(p product) string {
	name := firstNonEmpty(p.Name, p.NameFR, "Nom non disponible")
	brands := firstNonEmpty(p.Brands, "Marque non disponible")
	nutriscore := strings.ToUpper(p.NutriscoreGrade)
	nova := string(p.NovaGroup)
	ecoscore := strings.ToUpper(p.EcoscoreGrade)

	lines := []string{
		"🍽️ ANALYSE NUTRITIONNELLE COMPLÈTE",
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━",
		"",
		"📦 *" + name + "*",
		"🏷️ " + brands,
		"",
		"📊 *SCORES QUALITÉ*",
		"🎯 Nutri-Score: " + labelOr(nutriscoreLabels, nutriscore, "Non évalué"),
		"⚗️ NOVA: " + labelOr(novaLabels, nova, "Non évalué"),
	}
	if ecoscore != "" {
		lines = append(lines, "🌱 Eco-Score: "+labelOr(ecoscoreLabels, ecoscore, ecoscore+" (Impact environnemental)"))
	}
	lines = append(lines, "")

	energy := nutrient(p.Nutriments, "energy-kcal_100g", "kcal", 1)
	energyKJ := nutrient(p.Nutriments, "energy-kj_100g", "kJ", 1)
	if energyKJ != notAvailable {
		energy += " (" + energyKJ + ")"
	}
	salt := nutrient(p.Nutriments, "salt_100g", "g", 1)
	if sodium := nutrient(p.Nutriments, "sodium_100g", "mg", 1000); sodium != notAvailable {
		salt += " (" + sodium + " sodium)"
	}

	lines = append(lines,
		"🥗 *VALEURS NUTRITIONNELLES (100g)*",
		"⚡ Énergie: "+energy,
		"🥩 Protéines: "+nutrient(p.Nutriments, "proteins_100g", "g", 1),
		"🍞 Glucides: "+nutrient(p.Nutriments, "carbohydrates_100g", "g", 1),
		"   └ 🍯 dont sucres: "+nutrient(p.Nutriments, "sugars_100g", "g", 1),
		"🧈 Matières grasses: "+nutrient(p.Nutriments, "fat_100g", "g", 1),
		"   └ 🔴 dont saturées: "+nutrient(p.Nutriments, "saturated-fat_100g", "g", 1),
		"🌾 Fibres: "+nutrient(p.Nutriments, "fiber_100g", "g", 1),
		"🧂 Sel: "+salt,
		"",
	)

	lines = appendSection(lines, "📏 *PORTION*", servingInfo(p))
	lines = appendSection(lines, "🏷️ *LABELS & CERTIFICATIONS*", labelsInfo(p.LabelsTags))
	lines = appendSection(lines, "⚠️ *ALLERGÈNES*", allergensInfo(p.AllergensTags))
	lines = appendSection(lines, "🧬 *ADDITIFS*", additivesInfo(p.AdditivesTags))
	lines = appendSection(lines, "🌍 *ORIGINE & FABRICATION*", originInfo(p))
	lines = appendSection(lines, "💡 *RECOMMANDATIONS SANTÉ*", recommendation(nutriscore, nova, p.Nutriments))
	lines = appendSection(lines, "📂 *CATÉGORIES*", categoriesInfo(p.Categories))

	lines = append(lines, "🔍 _Données OpenFoodFacts - Code: "+firstNonEmpty(p.Code, "N/A")+"_")

	return strings.Join(lines, "\n")
}

func appendSection(lines []string, title string, body string) []string {
	if body == "" {
		return lines
	}

	return append(lines, title, body, "")
}

// nutrient renders a per-100g value, scaled by factor, rounded the way labels are printed.
func nutrient(nutriments map[string]flexFloat, key string, unit string, factor float64) string {
	value, ok := nutriments[key]
	if !ok || !value.Valid {
		return notAvailable
	}

	v := value.Value * factor
	switch {
	case v > 0 && v < 0.1:
		return "< 0.1 " + unit
	case v < 10:
		return strconv.FormatFloat(v, 'f', 1, 64) + " " + unit
	default:
		return strconv.Itoa(int(math.Floor(v+0.5))) + " " + unit
	}
}

func labelOr(labels map[string]string, key string, fallback string) string {
	if label, ok := labels[key]; ok {
		return label
	}

	return fallback
}

func servingInfo(p product) string {
	parts := make([]string, 0, 2)
	if serving := strings.TrimSpace(p.ServingSize); serving != "" {
		parts = append(parts, "📏 Taille de portion: "+serving)
	}
	if packaging := strings.TrimSpace(p.Packaging); packaging != "" {
		parts = append(parts, "📦 Emballage: "+packaging)
	}

	return strings.Join(parts, "\n")
}

func labelsInfo(tags []string) string {
	present := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		present[tag] = struct{}{}
	}

	found := make([]string, 0)
	for _, label := range notableLabels {
		if _, ok := present[label.tag]; ok {
			found = append(found, label.text)
		}
	}

	return strings.Join(found, "\n")
}

func allergensInfo(tags []string) string {
	if len(tags) == 0 {
		return ""
	}

	found := make([]string, 0, len(tags))
	for _, tag := range tags {
		if name, ok := allergenNames[tag]; ok {
			found = append(found, name)
		}
	}
	if len(found) == 0 {
		return "Aucun allergène majeur identifié"
	}

	return strings.Join(found, "\n")
}

func additivesInfo(tags []string) string {
	if len(tags) == 0 {
		return "✅ Aucun additif détecté dans ce produit."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %d additif(s) détecté(s) :\n", len(tags))
	for i, tag := range tags {
		if i == 5 {
			fmt.Fprintf(&b, "... et %d autre(s)\n", len(tags)-5)
			break
		}
		code := strings.ToUpper(strings.TrimPrefix(tag, "en:"))
		if info, ok := additiveNames[code]; ok {
			fmt.Fprintf(&b, "• %s - %s\n", code, info)
			continue
		}
		fmt.Fprintf(&b, "• %s\n", code)
	}
	b.WriteString("💡 Les additifs peuvent avoir des effets sur la santé. Privilégiez les produits avec moins d'additifs.")

	return b.String()
}

func originInfo(p product) string {
	parts := make([]string, 0, 4)
	if origins := strings.TrimSpace(p.Origins); origins != "" {
		parts = append(parts, "🌍 Origine: "+origins)
	}
	if places := strings.TrimSpace(p.ManufacturingPlaces); places != "" {
		parts = append(parts, "🏭 Lieu de fabrication: "+places)
	}
	if len(p.CountriesTags) > 0 {
		countries := make([]string, 0, len(p.CountriesTags))
		for _, tag := range p.CountriesTags {
			countries = append(countries, strings.ReplaceAll(strings.TrimPrefix(tag, "en:"), "-", " "))
		}
		parts = append(parts, "🗺️ Pays: "+strings.Join(countries, ", "))
	}
	if stores := strings.TrimSpace(p.Stores); stores != "" {
		parts = append(parts, "🏪 Magasins: "+stores)
	}

	return strings.Join(parts, "\n")
}

func categoriesInfo(categories string) string {
	if strings.TrimSpace(categories) == "" {
		return ""
	}

	items := strings.Split(categories, ",")
	if len(items) > 3 {
		items = items[:3]
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "• "+strings.TrimSpace(item))
	}

	return strings.Join(lines, "\n")
}

func recommendation(nutriscore string, nova string, nutriments map[string]flexFloat) string {
	var b strings.Builder

	switch nutriscore {
	case "A":
		b.WriteString("✅ *EXCELLENT CHOIX !* Ce produit a un profil nutritionnel optimal. Vous pouvez le consommer régulièrement dans le cadre d'une alimentation équilibrée.")
	case "B":
		b.WriteString("👍 *BON CHOIX !* Ce produit a une bonne qualité nutritionnelle. Il peut faire partie d'une alimentation saine.")
	case "C":
		b.WriteString("⚠️ *QUALITÉ MOYENNE.* Ce produit peut être consommé occasionnellement. Privilégiez les alternatives avec de meilleurs scores.")
	case "D":
		b.WriteString("🔶 *QUALITÉ MÉDIOCRE.* Limitez la consommation de ce produit. Recherchez des alternatives plus saines.")
	case "E":
		b.WriteString("❌ *ÉVITEZ CE PRODUIT.* Très mauvaise qualité nutritionnelle. Consommez très occasionnellement ou trouvez une alternative.")
	default:
		b.WriteString("ℹ️ Nutri-Score non disponible pour ce produit.")
	}

	novaAdvice := map[string]string{
		"1": "🌱 *ALIMENT NATUREL* - Non transformé ou minimalement transformé. Parfait pour une alimentation saine !",
		"2": "🧂 *INGRÉDIENT CULINAIRE* - Utilisez avec modération pour cuisiner et assaisonner.",
		"3": "⚠️ *ALIMENT TRANSFORMÉ* - Consommez occasionnellement. Préférez les aliments moins transformés.",
		"4": "🚫 *ULTRA-TRANSFORMÉ* - Évitez autant que possible. Ces produits sont liés à des risques pour la santé.",
	}
	if advice, ok := novaAdvice[nova]; ok {
		b.WriteString("\n\n" + advice)
	}

	tips := make([]string, 0, 4)
	if above(nutriments, "salt_100g", 1.5) {
		tips = append(tips, "🧂 *Attention:* Taux de sel élevé. Limitez si vous surveillez votre consommation de sodium.")
	}
	if above(nutriments, "sugars_100g", 15) {
		tips = append(tips, "🍯 *Attention:* Riche en sucres. À consommer avec modération.")
	}
	if above(nutriments, "saturated-fat_100g", 5) {
		tips = append(tips, "🔴 *Attention:* Riche en graisses saturées. Limitez la consommation.")
	}
	if above(nutriments, "fiber_100g", 6) {
		tips = append(tips, "🌾 *Bon point:* Riche en fibres, bénéfique pour la digestion.")
	}
	if len(tips) > 0 {
		b.WriteString("\n\n" + strings.Join(tips, "\n"))
	}

	return b.String()
}

func above(nutriments map[string]flexFloat, key string, threshold float64) bool {
	value, ok := nutriments[key]
	return ok && value.Valid && value.Value > threshold
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}

	return ""
}
