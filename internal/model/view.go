package model

import "time"

// Snapshot is the read view republished after every mutation.
type Snapshot struct {
	UserID          string            `json:"user_id"`
	Date            string            `json:"date"`
	RefreshedAt     time.Time         `json:"refreshed_at"`
	Workouts        []*Workout        `json:"workouts"`
	Checks          []*DailyCheck     `json:"checks"`
	Water           *WaterIntake      `json:"water,omitempty"`
	Meals           []*Meal           `json:"meals"`
	Totals          Macros            `json:"totals"`
	Goal            NutritionGoal     `json:"goal"`
	LatestWeight    *Measurement      `json:"latest_weight,omitempty"`
	CustomExercises []*CustomExercise `json:"custom_exercises"`
}

// Done reports whether the workout has a check in the snapshot's day.
func (s *Snapshot) Done(workoutID string) bool {
	for _, c := range s.Checks {
		if c.WorkoutID == workoutID {
			return true
		}
	}
	return false
}

// WaterML is the day's water total, zero when nothing was logged.
func (s *Snapshot) WaterML() int {
	if s.Water == nil {
		return 0
	}
	return s.Water.AmountML
}

// DaySummary reconstructs one calendar day against the goal in effect then.
type DaySummary struct {
	Date             string
	Goal             NutritionGoal
	Totals           Macros
	WaterML          int
	Meals            int
	Checks           []*DailyCheck
	CaloriesProgress float64 // Totals.Calories / Goal.Calories
	WaterProgress    float64 // WaterML / Goal.WaterML
	CaloriesMet      bool    // within 10% of the calorie goal
	WaterMet         bool
}
