package config

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bruno.lopes/dutyplanner/internal/registry"
)

// LoadScenario loads a named scenario directory holding all three
// documents under the same name (dir/name/{tasks,physicians,calendar}.json).
func LoadScenario(dir, name string) (*registry.Registry, *CalendarConfig, error) {
	base := filepath.Join(dir, name)
	return Load(
		filepath.Join(base, "tasks.json"),
		filepath.Join(base, "physicians.json"),
		filepath.Join(base, "calendar.json"),
	)
}

// LoadComposite loads each document from its own named scenario
// directory (spec.md §6's composable `--task-scenario
// --physician-scenario --calendar-scenario` CLI form), so a task
// scenario can be mixed with a different physician or calendar scenario.
func LoadComposite(dir, taskScenario, physicianScenario, calendarScenario string) (*registry.Registry, *CalendarConfig, error) {
	return Load(
		filepath.Join(dir, taskScenario, "tasks.json"),
		filepath.Join(dir, physicianScenario, "physicians.json"),
		filepath.Join(dir, calendarScenario, "calendar.json"),
	)
}

// ListScenarios returns every scenario name (subdirectory) under dir,
// sorted, for `run-all`'s cartesian iteration.
func ListScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
