package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wesleyorama2/breakwater/internal/faultinject"
)

// ValidationError reports a single semantic problem in a run config.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

func (e *ValidationErrors) add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// Validate checks semantic rules the schema cannot express.
func (c *RunConfig) Validate() error {
	errs := &ValidationErrors{}

	if _, err := url.ParseRequestURI(c.Target.BaseURL); err != nil {
		errs.add("target.baseUrl", "must be an absolute URL")
	}
	if _, err := faultinject.ParseSequence(c.Target.Scenario); err != nil {
		errs.add("target.scenario", err.Error())
	}

	if c.Run.MaxWait <= 0 {
		errs.add("run.maxWait", "must be a positive duration")
	}
	if c.Run.Stagger < 0 {
		errs.add("run.stagger", "must not be negative")
	}

	switch c.Capacity.Kind {
	case "fixed":
		if c.Capacity.Limit <= 0 {
			errs.add("capacity.limit", "fixed capacity requires limit > 0")
		}
	case "elastic":
		if c.Capacity.MaxSize <= 0 {
			errs.add("capacity.maxSize", "elastic capacity requires maxSize > 0")
		}
		if c.Capacity.CoreSize > c.Capacity.MaxSize {
			errs.add("capacity.coreSize", "coreSize must not exceed maxSize")
		}
		if c.Capacity.QueueCapacity < 0 {
			errs.add("capacity.queueCapacity", "must not be negative")
		}
	}

	if len(errs.Errors) > 0 {
		return errs
	}
	return nil
}
