// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

//go:embed activities.json
var builtin []byte

// Default returns the registry of the shopping-assistant task types.
func Default() *ActivityRegistry {
	reg, err := Parse(builtin)
	if err != nil {
		panic(fmt.Sprintf("embedded activity registry: %v", err))
	}
	return reg
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a registry and checks that task types are unique and
// timeouts are valid durations. Activities are ordered by stage.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	seen := make(map[string]bool, len(reg.Activities))
	for _, a := range reg.Activities {
		if a.TaskType == "" {
			return nil, fmt.Errorf("activity %q has no task type", a.ID)
		}
		if seen[a.TaskType] {
			return nil, fmt.Errorf("duplicate task type %q", a.TaskType)
		}
		seen[a.TaskType] = true
		if _, err := a.TimeoutDuration(); err != nil {
			return nil, fmt.Errorf("activity %q: %w", a.TaskType, err)
		}
	}

	sort.SliceStable(reg.Activities, func(i, j int) bool {
		return reg.Activities[i].Stage < reg.Activities[j].Stage
	})
	return &reg, nil
}

// Lookup finds an activity by task type.
func (r *ActivityRegistry) Lookup(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Missing returns the task types not described by the registry.
func (r *ActivityRegistry) Missing(taskTypes ...string) []string {
	var missing []string
	for _, t := range taskTypes {
		if _, ok := r.Lookup(t); !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// TimeoutDuration parses Timeout; an empty value means no timeout.
func (a Activity) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", a.Timeout, err)
	}
	return d, nil
}
