package core

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed workouts.yaml
var defaultWorkoutsYAML []byte

const displayedAtLayout = "01/02/2006, 15:04"

// Workout is one day of the plan.
type Workout struct {
	Workout   string `yaml:"workout" json:"workout"`
	Equipment string `yaml:"equipment" json:"equipment"`
	Time      string `yaml:"time" json:"time"`
}

// SiteContent is the read-only page data handed to the router at startup.
type SiteContent struct {
	Workouts    []Workout
	DisplayedAt string
}

type workoutCatalog struct {
	Workouts []Workout `yaml:"workouts"`
}

// LoadSiteContent reads the workout catalog from path, or the embedded default when path
// is empty, and stamps it with now.
func LoadSiteContent(path string, now time.Time) (SiteContent, error) {
	data := defaultWorkoutsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return SiteContent{}, fmt.Errorf("read workouts file: %w", err)
		}
		data = b
	}
	workouts, err := parseWorkouts(data)
	if err != nil {
		return SiteContent{}, err
	}
	return SiteContent{Workouts: workouts, DisplayedAt: now.Format(displayedAtLayout)}, nil
}

func parseWorkouts(b []byte) ([]Workout, error) {
	var doc workoutCatalog
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("workouts file is malformed: %w", err)
	}
	if len(doc.Workouts) == 0 {
		return nil, errors.New("workouts file has no workouts")
	}
	for i, w := range doc.Workouts {
		if w.Workout == "" {
			return nil, fmt.Errorf("workout %d has no name", i+1)
		}
	}
	return doc.Workouts, nil
}
