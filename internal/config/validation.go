package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration and reports every problem found.
func (c HarnessConfig) Validate() error {
	var errs ValidationErrors

	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("base_url", "must be an absolute http(s) URL", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		errs.Add("request_timeout", "must be positive", c.RequestTimeout)
	}
	if strings.TrimSpace(c.ResultsDir) == "" {
		errs.Add("results_dir", "is required")
	}
	if !strings.HasPrefix(c.Server.ReadinessPath, "/") {
		errs.Add("server.readiness_path", "must start with /", c.Server.ReadinessPath)
	}
	if !strings.HasPrefix(c.Server.ShutdownPath, "/") {
		errs.Add("server.shutdown_path", "must start with /", c.Server.ShutdownPath)
	}
	if c.Server.Startup.MaxAttempts < 1 {
		errs.Add("server.startup.max_attempts", "must be at least 1", c.Server.Startup.MaxAttempts)
	}
	switch c.Sampler.Target {
	case "", TargetHarness, TargetServer:
	default:
		errs.Add("sampler.target", "must be harness or server", c.Sampler.Target)
	}
	if c.Sampler.PrimeDelay < 0 {
		errs.Add("sampler.prime_delay", "must not be negative", c.Sampler.PrimeDelay)
	}
	if c.Sweep.ClearPasses < 1 {
		errs.Add("sweep.clear_passes", "must be at least 1", c.Sweep.ClearPasses)
	}
	if len(c.Entities) == 0 {
		errs.Add("entities", "must define at least one entity kind")
	}

	kinds := make([]string, 0, len(c.Entities))
	for kind := range c.Entities {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		validateEntity(&errs, "entities."+kind, c.Entities[kind])
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateEntity(errs *ValidationErrors, prefix string, e EntityConfig) {
	if e.Singular == "" {
		errs.Add(prefix+".singular", "is required")
	}
	if len(e.Sizes) == 0 {
		errs.Add(prefix+".sizes", "must list at least one size")
	}
	for i, size := range e.Sizes {
		if size < 1 {
			errs.Add(fmt.Sprintf("%s.sizes[%d]", prefix, i), "must be at least 1", size)
		}
		if i > 0 && size <= e.Sizes[i-1] {
			errs.Add(fmt.Sprintf("%s.sizes[%d]", prefix, i), "sizes must be strictly ascending", size)
		}
	}
	switch e.Format {
	case "", FormatJSON, FormatXML:
	default:
		errs.Add(prefix+".format", "must be json or xml", e.Format)
	}
	if e.ListIDs == "" {
		errs.Add(prefix+".list_ids", "is required")
	}
	if e.CreatedID == "" {
		errs.Add(prefix+".created_id", "is required")
	}
	if len(e.Create) == 0 {
		errs.Add(prefix+".create", "must define at least one field")
	}
	for i, f := range append(append([]FieldTemplate(nil), e.Create...), e.Update...) {
		if f.Name == "" {
			errs.Add(fmt.Sprintf("%s.fields[%d].name", prefix, i), "is required")
		}
		switch f.Type {
		case "", FieldString, FieldBool, FieldInt:
		default:
			errs.Add(fmt.Sprintf("%s.fields[%d].type", prefix, i), "must be string, bool or int", f.Type)
		}
	}
}
