package config

import (
	"time"

	"todoperf/internal/retry"
)

const (
	DefaultBaseURL    = "http://localhost:4567"
	DefaultResultsDir = "results"
	DefaultServerJar  = "runTodoManagerRestAPI-1.5.5.jar"
)

// fullSizes is the sweep used for todos and categories.
var fullSizes = []int{
	1, 5, 10, 50, 75, 100, 200, 300, 400, 500, 600, 700, 800, 900,
	1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, 10000,
}

// projectSizes is the shorter sweep used for projects.
var projectSizes = []int{1, 5, 10, 50, 200, 400, 600, 800, 1000}

// DefaultConfig returns the configuration matching the Todo Manager 1.5.5 API.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: 30 * time.Second,
		ResultsDir:     DefaultResultsDir,
		LogLevel:       "info",
		Server: ServerConfig{
			Command:         []string{"java", "-jar", DefaultServerJar},
			ReadinessPath:   "/todos",
			ShutdownPath:    "/shutdown",
			ProbeTimeout:    2 * time.Second,
			Startup:         retry.Fixed(5, time.Second),
			ShutdownTimeout: 10 * time.Second,
		},
		Sampler: SamplerConfig{
			Target:     TargetHarness,
			PrimeDelay: 100 * time.Millisecond,
		},
		Sweep: SweepConfig{
			SettleAfterClear: 500 * time.Millisecond,
			SettleAfterFill:  500 * time.Millisecond,
			SettleBetweenOps: 200 * time.Millisecond,
			ClearPasses:      3,
			Relations:        retry.Fixed(2, 500*time.Millisecond),
		},
		Entities: DefaultEntities(),
	}
}

// DefaultEntities returns the built-in entity kinds.
func DefaultEntities() map[string]EntityConfig {
	return map[string]EntityConfig{
		KindTodos: {
			Singular:  "todo",
			Sizes:     append([]int(nil), fullSizes...),
			Format:    FormatJSON,
			ListIDs:   "todos[].id",
			CreatedID: "id",
			Create: []FieldTemplate{
				{Name: "title", Template: "{{ randAlphaNum 10 }}"},
				{Name: "description", Template: "{{ randAlphaNum 20 }}"},
				{Name: "doneStatus", Template: "{{ randBool }}", Type: FieldBool},
			},
			Update: []FieldTemplate{
				{Name: "title", Template: "{{ randAlphaNum 10 }}"},
				{Name: "description", Template: "{{ randAlphaNum 20 }}"},
				{Name: "doneStatus", Template: "{{ randBool }}", Type: FieldBool},
			},
		},
		KindProjects: {
			Singular:  "project",
			Sizes:     append([]int(nil), projectSizes...),
			Format:    FormatJSON,
			ListIDs:   "projects[].id",
			CreatedID: "id",
			Create: []FieldTemplate{
				{Name: "title", Template: "{{ randAlphaNum 10 }}"},
				{Name: "description", Template: "{{ randAlphaNum 25 }}"},
				{Name: "completed", Template: "{{ randBool }}"},
			},
			Update: []FieldTemplate{
				{Name: "description", Template: "Updated_{{ randAlpha 10 }}"},
			},
		},
		KindCategories: {
			Singular:  "category",
			Sizes:     append([]int(nil), fullSizes...),
			Format:    FormatJSON,
			ListIDs:   "categories[].id",
			CreatedID: "id",
			Create: []FieldTemplate{
				{Name: "title", Template: "{{ randAlphaNum 10 }}"},
				{Name: "description", Template: "{{ randAlphaNum 25 }}"},
			},
			Update: []FieldTemplate{
				{Name: "description", Template: "Updated_{{ randAlpha 10 }}"},
			},
		},
	}
}

// KindOrder lists the built-in kinds in the order they are swept.
func KindOrder() []string {
	return []string{KindTodos, KindProjects, KindCategories}
}
