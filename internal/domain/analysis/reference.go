package analysis

// ReferenceEntry is one row of a closed reference table embedded in the prompt.
type ReferenceEntry struct {
	Name   string
	Detail string
}

// Habits is the closed list of lifestyle habits the blueprint may recommend.
var Habits = []ReferenceEntry{
	{"Sleep 7-9 hours nightly", "Skin barrier repair and collagen synthesis peak during deep sleep."},
	{"Drink 2 liters of water daily", "Supports stratum corneum hydration in mildly dehydrated adults."},
	{"Change pillowcases twice weekly", "Reduces transfer of sebum, bacteria and product residue to facial skin."},
	{"Apply sunscreen every morning", "Daily broad-spectrum SPF slows visible photoaging."},
	{"Cleanse after exercise", "Removes sweat and sebum that can occlude pores."},
	{"Limit high-glycemic foods", "Lower glycemic load diets are associated with fewer acne lesions."},
	{"Use lukewarm water when washing", "Hot water strips lipids and increases transepidermal water loss."},
	{"Manage stress with daily breaks", "Cortisol spikes are linked to oil production and flare-ups."},
	{"Avoid touching your face", "Limits bacterial transfer and mechanical irritation."},
	{"Run a humidifier in dry seasons", "Ambient humidity above 40% reduces barrier dryness."},
}

// Ingredients is the closed list of actives the blueprint may recommend.
var Ingredients = []ReferenceEntry{
	{"Niacinamide", "4-5% reduced sebum, redness and hyperpigmentation over 8-12 weeks."},
	{"Hyaluronic Acid", "Topical application improved skin hydration and elasticity within 2 weeks."},
	{"Ceramides", "Ceramide-dominant moisturizers restored barrier function in dry skin."},
	{"Retinol", "0.1-1% retinol improved fine lines and texture over 12 weeks."},
	{"Salicylic Acid", "0.5-2% BHA reduced comedones by exfoliating inside the pore."},
	{"Azelaic Acid", "15-20% azelaic acid reduced papules and post-inflammatory pigmentation."},
	{"Vitamin C", "10-20% L-ascorbic acid improved photodamage and brightness."},
	{"Zinc Oxide", "Broad-spectrum mineral UV filter well tolerated by sensitive skin."},
	{"Centella Asiatica", "Madecassoside supported wound healing and reduced irritation."},
	{"Panthenol", "5% panthenol accelerated barrier recovery after irritation."},
	{"Glycolic Acid", "AHA exfoliation improved tone and texture in photoaged skin."},
	{"Peptides", "Signal peptides increased dermal collagen markers in controlled trials."},
}

func names(entries []ReferenceEntry) map[string]struct{} {
	m := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		m[e.Name] = struct{}{}
	}
	return m
}

var (
	habitNames      = names(Habits)
	ingredientNames = names(Ingredients)
)

// IsHabit reports whether name is a verbatim entry of Habits.
func IsHabit(name string) bool {
	_, ok := habitNames[name]
	return ok
}

// IsIngredient reports whether name is a verbatim entry of Ingredients.
func IsIngredient(name string) bool {
	_, ok := ingredientNames[name]
	return ok
}
