package model

const (
	CollectionWorkouts        = "workouts"
	CollectionDailyChecks     = "daily_checks"
	CollectionWaterIntake     = "water_intake"
	CollectionMeals           = "meals"
	CollectionMeasurements    = "measurements"
	CollectionExerciseEdits   = "exercise_edits"
	CollectionCustomExercises = "custom_exercises"
	CollectionNutritionGoals  = "nutrition_goals"
)

// Collections lists every collection the app persists.
var Collections = []string{
	CollectionWorkouts,
	CollectionDailyChecks,
	CollectionWaterIntake,
	CollectionMeals,
	CollectionMeasurements,
	CollectionExerciseEdits,
	CollectionCustomExercises,
	CollectionNutritionGoals,
}

type Workout struct {
	Meta
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	ExerciseIDs []string `json:"exercise_ids,omitempty"`
	Weekdays    []int    `json:"weekdays,omitempty"` // 0 = Sunday
	TimesDone   int      `json:"times_done"`
	LastDone    string   `json:"last_done,omitempty"` // YYYY-MM-DD
}

func (Workout) Collection() string { return CollectionWorkouts }

type WorkoutPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	ExerciseIDs *[]string `json:"exercise_ids,omitempty"`
	Weekdays    *[]int    `json:"weekdays,omitempty"`
	TimesDone   *int      `json:"times_done,omitempty"`
	LastDone    *string   `json:"last_done,omitempty"`
}

func (WorkoutPatch) Collection() string { return CollectionWorkouts }

// DailyCheck marks a workout as done on a day.
type DailyCheck struct {
	Meta
	Date        string `json:"date"`
	WorkoutID   string `json:"workout_id"`
	CompletedAt string `json:"completed_at,omitempty"` // RFC 3339
}

func (DailyCheck) Collection() string { return CollectionDailyChecks }
