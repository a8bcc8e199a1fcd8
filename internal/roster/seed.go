package roster

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/signup/internal/domain"
)

//go:embed seed.yaml
var defaultSeed []byte

var (
	// ErrDuplicateActivity marks a seed set that names the same activity twice.
	ErrDuplicateActivity = errors.New("duplicate activity in seed")
	// ErrDuplicateParticipant marks a seed roster that lists the same email twice.
	ErrDuplicateParticipant = errors.New("duplicate participant in seed")
	// ErrUnnamedActivity marks a seed entry without a name.
	ErrUnnamedActivity = errors.New("seed activity has no name")
)

// DefaultSeed returns the embedded activity set.
func DefaultSeed() ([]domain.Activity, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeedFile reads a seed set from path. An empty path selects the embedded set.
func LoadSeedFile(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML list of activities and validates it.
func ParseSeed(data []byte) ([]domain.Activity, error) {
	var activities []domain.Activity
	if err := yaml.Unmarshal(data, &activities); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := validateSeed(activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func validateSeed(activities []domain.Activity) error {
	names := make(map[string]struct{}, len(activities))
	for i, activity := range activities {
		if activity.Name == "" {
			return fmt.Errorf("%w (entry %d)", ErrUnnamedActivity, i)
		}
		if _, exists := names[activity.Name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateActivity, activity.Name)
		}
		names[activity.Name] = struct{}{}

		emails := make(map[string]struct{}, len(activity.Participants))
		for _, email := range activity.Participants {
			if _, exists := emails[email]; exists {
				return fmt.Errorf("%w: %q in %q", ErrDuplicateParticipant, email, activity.Name)
			}
			emails[email] = struct{}{}
		}
	}
	return nil
}
