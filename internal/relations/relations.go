// Package relations measures the category relationship endpoints of the Todo
// Manager API: linking projects and todos to a category, listing them and
// removing the links again.
package relations

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"todoperf/internal/besteffort"
	"todoperf/internal/config"
	"todoperf/internal/measure"
	"todoperf/internal/payload"
	"todoperf/internal/results"
	"todoperf/internal/retry"
	"todoperf/internal/todoapi"
	"todoperf/pkg/logging"
)

// Operation names as they appear in the results file.
const (
	OpAddProject    measure.Operation = "Add project to category"
	OpListProjects  measure.Operation = "Get projects for category"
	OpAddTodo       measure.Operation = "Add todo to category"
	OpListTodos     measure.Operation = "Get todos for category"
	OpDeleteProject measure.Operation = "Delete project relationship"
	OpDeleteTodo    measure.Operation = "Delete todo relationship"
)

// Benchmark runs the relationship measurements once.
type Benchmark struct {
	categories *todoapi.Entity
	projects   *todoapi.Entity
	todos      *todoapi.Entity
	gens       map[string]*payload.Generator
	sampler    *measure.Sampler
	setup      retry.Policy
}

// New builds a benchmark from the todos, projects and categories entity
// configurations.
func New(client *todoapi.Client, entities map[string]config.EntityConfig, sampler *measure.Sampler, setup retry.Policy) (*Benchmark, error) {
	b := &Benchmark{
		gens:    make(map[string]*payload.Generator),
		sampler: sampler,
		setup:   setup,
	}
	for _, kind := range []string{config.KindCategories, config.KindProjects, config.KindTodos} {
		cfg, ok := entities[kind]
		if !ok {
			return nil, fmt.Errorf("relationship benchmark needs the %s entity", kind)
		}
		gen, err := payload.NewGenerator(cfg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		b.gens[kind] = gen
	}
	b.categories = client.Entity(config.KindCategories, entities[config.KindCategories])
	b.projects = client.Entity(config.KindProjects, entities[config.KindProjects])
	b.todos = client.Entity(config.KindTodos, entities[config.KindTodos])
	return b, nil
}

// Run creates one category, project and todo, measures the relationship
// calls and removes the three entities again. A failed measured call is
// recorded with its status; a transport failure stops the benchmark and
// returns the records gathered so far.
func (b *Benchmark) Run(ctx context.Context) ([]results.RelationRecord, error) {
	var created []cleanup
	defer func() {
		for i := len(created) - 1; i >= 0; i-- {
			c := created[i]
			_ = besteffort.Run("Relations", "delete "+c.entity.Kind()+" "+c.id, func() error {
				_, err := c.entity.Delete(context.WithoutCancel(ctx), c.id)
				return err
			})
		}
	}()

	ids := make(map[string]string)
	for _, entity := range []*todoapi.Entity{b.categories, b.projects, b.todos} {
		id, err := b.create(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to create test %s: %w", entity.Kind(), err)
		}
		created = append(created, cleanup{entity: entity, id: id})
		ids[entity.Kind()] = id
		logging.Info("Relations", "Created test %s with id %s", entity.Kind(), id)
	}

	category := ids[config.KindCategories]
	project := ids[config.KindProjects]
	todo := ids[config.KindTodos]

	steps := []struct {
		op   measure.Operation
		call func() (*todoapi.Response, error)
	}{
		{OpAddProject, func() (*todoapi.Response, error) {
			return b.categories.Link(ctx, category, config.KindProjects, project)
		}},
		{OpListProjects, func() (*todoapi.Response, error) {
			return b.categories.Related(ctx, category, config.KindProjects)
		}},
		{OpAddTodo, func() (*todoapi.Response, error) {
			return b.categories.Link(ctx, category, config.KindTodos, todo)
		}},
		{OpListTodos, func() (*todoapi.Response, error) {
			return b.categories.Related(ctx, category, config.KindTodos)
		}},
		{OpDeleteProject, func() (*todoapi.Response, error) {
			return b.categories.Unlink(ctx, category, config.KindProjects, project)
		}},
		{OpDeleteTodo, func() (*todoapi.Response, error) {
			return b.categories.Unlink(ctx, category, config.KindTodos, todo)
		}},
	}

	records := make([]results.RelationRecord, 0, len(steps))
	for _, step := range steps {
		resp, sample, err := measure.Measure(b.sampler, step.op, 1, step.call)
		if err != nil {
			return records, fmt.Errorf("%s: %w", step.op, err)
		}
		if !resp.OK() {
			logging.Warn("Relations", "%s returned %d", step.op, resp.StatusCode)
		}
		logging.Info("Relations", "%s: %d in %.2f ms", step.op, resp.StatusCode, sample.DurationMs())
		records = append(records, results.NewRelationRecord(sample, resp.StatusCode))
	}
	return records, nil
}

type cleanup struct {
	entity *todoapi.Entity
	id     string
}

// create retries connection failures and rejected creates under the setup
// policy.
func (b *Benchmark) create(ctx context.Context, entity *todoapi.Entity) (string, error) {
	gen := b.gens[entity.Kind()]
	return retry.DoValue(ctx, b.setup, retryable, func() (string, error) {
		body, err := gen.Create()
		if err != nil {
			return "", err
		}
		resp, err := entity.Create(ctx, body)
		if err != nil {
			return "", err
		}
		if !resp.OK() {
			return "", &todoapi.StatusError{Method: "POST", Path: "/" + entity.Kind(), StatusCode: resp.StatusCode, Body: string(resp.Body)}
		}
		return entity.CreatedID(resp)
	})
}

func retryable(err error) bool {
	var statusErr *todoapi.StatusError
	return retry.IsConnectionError(err) || errors.As(err, &statusErr)
}

// Export writes records to <dir>/category_relationships_results.json.
func Export(dir string, records []results.RelationRecord) (string, error) {
	if records == nil {
		records = []results.RelationRecord{}
	}
	path := filepath.Join(dir, results.RelationshipsFile)
	if err := results.WriteJSON(path, records); err != nil {
		return "", err
	}
	logging.Info("Results", "Wrote %d relationship samples to %s", len(records), path)
	return path, nil
}
