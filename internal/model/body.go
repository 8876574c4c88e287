package model

import "time"

const (
	MeasurementWeight  = "weight"
	MeasurementBodyFat = "body_fat"
	MeasurementWaist   = "waist"
	MeasurementChest   = "chest"
	MeasurementHips    = "hips"
	MeasurementArm     = "arm"
	MeasurementThigh   = "thigh"
)

// MeasurementUnits lists the accepted units per kind; the first is canonical.
var MeasurementUnits = map[string][]string{
	MeasurementWeight:  {"kg", "lb"},
	MeasurementBodyFat: {"%"},
	MeasurementWaist:   {"cm", "in"},
	MeasurementChest:   {"cm", "in"},
	MeasurementHips:    {"cm", "in"},
	MeasurementArm:     {"cm", "in"},
	MeasurementThigh:   {"cm", "in"},
}

type Measurement struct {
	Meta
	Date  time.Time `json:"date"`
	Kind  string    `json:"kind"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit"`
}

func (Measurement) Collection() string { return CollectionMeasurements }

func (m Measurement) EffectiveAt() time.Time { return m.Date }

// Kilograms converts a weight measurement to kg.
func (m Measurement) Kilograms() float64 {
	if m.Unit == "lb" {
		return m.Value * 0.45359237
	}
	return m.Value
}

// ExerciseConfig is the tunable part of an exercise.
type ExerciseConfig struct {
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	WeightKg    float64 `json:"weight_kg"`
	RestSeconds int     `json:"rest_seconds"`
	Notes       string  `json:"notes,omitempty"`
}

// ExerciseEdit is versioned: every change to an exercise's configuration
// inserts a complete snapshot.
type ExerciseEdit struct {
	Meta
	ExerciseID string    `json:"exercise_id"`
	Date       time.Time `json:"date"`
	ExerciseConfig
}

func (ExerciseEdit) Collection() string { return CollectionExerciseEdits }

func (e ExerciseEdit) EffectiveAt() time.Time { return e.Date }

type ExerciseConfigPatch struct {
	Sets        *int     `json:"sets,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	RestSeconds *int     `json:"rest_seconds,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

func (ExerciseConfigPatch) Collection() string { return CollectionExerciseEdits }

func (p ExerciseConfigPatch) Apply(c ExerciseConfig) ExerciseConfig {
	if p.Sets != nil {
		c.Sets = *p.Sets
	}
	if p.Reps != nil {
		c.Reps = *p.Reps
	}
	if p.WeightKg != nil {
		c.WeightKg = *p.WeightKg
	}
	if p.RestSeconds != nil {
		c.RestSeconds = *p.RestSeconds
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	return c
}

type CustomExercise struct {
	Meta
	Name        string `json:"name"`
	MuscleGroup string `json:"muscle_group,omitempty"`
	Equipment   string `json:"equipment,omitempty"`
}

func (CustomExercise) Collection() string { return CollectionCustomExercises }

type CustomExercisePatch struct {
	Name        *string `json:"name,omitempty"`
	MuscleGroup *string `json:"muscle_group,omitempty"`
	Equipment   *string `json:"equipment,omitempty"`
}

func (CustomExercisePatch) Collection() string { return CollectionCustomExercises }
