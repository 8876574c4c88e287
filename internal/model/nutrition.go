package model

import "time"

// WaterIntake is the running total for one day. There is at most one per
// owner and date.
type WaterIntake struct {
	Meta
	Date     string `json:"date"`
	AmountML int    `json:"amount_ml"`
}

func (WaterIntake) Collection() string { return CollectionWaterIntake }

type WaterIntakePatch struct {
	AmountML *int `json:"amount_ml,omitempty"`
}

func (WaterIntakePatch) Collection() string { return CollectionWaterIntake }

const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

type Meal struct {
	Meta
	Date     string  `json:"date"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (Meal) Collection() string { return CollectionMeals }

type MealPatch struct {
	Type     *string  `json:"type,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Calories *float64 `json:"calories,omitempty"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`
}

func (MealPatch) Collection() string { return CollectionMeals }

// Macros is a calorie and macronutrient total.
type Macros struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

func (m Macros) Add(meal *Meal) Macros {
	m.Calories += meal.Calories
	m.ProteinG += meal.ProteinG
	m.CarbsG += meal.CarbsG
	m.FatG += meal.FatG
	return m
}

// NutritionGoal is versioned: every change inserts a complete snapshot and
// the one in effect on a day is resolved by Date.
type NutritionGoal struct {
	Meta
	Date     time.Time `json:"date"`
	Calories float64   `json:"calories"`
	ProteinG float64   `json:"protein_g"`
	CarbsG   float64   `json:"carbs_g"`
	FatG     float64   `json:"fat_g"`
	WaterML  int       `json:"water_ml"`
}

func (NutritionGoal) Collection() string { return CollectionNutritionGoals }

func (g NutritionGoal) EffectiveAt() time.Time { return g.Date }

// Default reports whether the goal came from a fallback rather than history.
func (g NutritionGoal) Default() bool { return g.ID == "" }

type NutritionGoalPatch struct {
	Calories *float64 `json:"calories,omitempty"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`
	WaterML  *int     `json:"water_ml,omitempty"`
}

func (NutritionGoalPatch) Collection() string { return CollectionNutritionGoals }

// Apply returns the goal with every set field of p copied over.
func (p NutritionGoalPatch) Apply(g NutritionGoal) NutritionGoal {
	if p.Calories != nil {
		g.Calories = *p.Calories
	}
	if p.ProteinG != nil {
		g.ProteinG = *p.ProteinG
	}
	if p.CarbsG != nil {
		g.CarbsG = *p.CarbsG
	}
	if p.FatG != nil {
		g.FatG = *p.FatG
	}
	if p.WaterML != nil {
		g.WaterML = *p.WaterML
	}
	return g
}
