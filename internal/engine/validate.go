package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/shirokuma-kb/shirokuma/internal/itemtype"
)

var validPriorities = map[string]bool{
	"CRITICAL": true, "HIGH": true, "MEDIUM": true, "LOW": true, "MINIMAL": true,
}

const dateLayout = "2006-01-02"

func validateTitle(title string) *FieldError {
	if len(strings.TrimSpace(title)) < 1 || len(title) > 255 {
		return &FieldError{Field: "title", Reason: "must be 1-255 characters"}
	}
	return nil
}

func validatePriority(priority string) *FieldError {
	if !validPriorities[priority] {
		return &FieldError{Field: "priority", Reason: "must be one of CRITICAL, HIGH, MEDIUM, LOW, MINIMAL"}
	}
	return nil
}

func validateDateFormat(field, value string) *FieldError {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return &FieldError{Field: field, Reason: "must be formatted YYYY-MM-DD"}
	}
	return nil
}

// validateDateOrder assumes both values already passed validateDateFormat.
func validateDateOrder(startDate, endDate string) *FieldError {
	if startDate == "" || endDate == "" {
		return nil
	}
	start, errStart := time.Parse(dateLayout, startDate)
	end, errEnd := time.Parse(dateLayout, endDate)
	if errStart != nil || errEnd != nil {
		return nil
	}
	if start.After(end) {
		return &FieldError{Field: "endDate", Reason: "must be on or after startDate"}
	}
	return nil
}

// fieldPermitted reports a FieldError if value is set but the type schema
// doesn't allow the field, per itemtype's fieldsFor. category and version
// are accepted unconditionally: they're create_item parameters but never
// gated by fieldsFor, so they sit outside the per-type gate that
// startDate/endDate (tasks-only) are subject to.
func fieldPermitted(schema itemtype.FieldSchema, field, value, typeName string) *FieldError {
	if value == "" || schema.Allows(field) {
		return nil
	}
	return &FieldError{Field: field, Reason: fmt.Sprintf("not permitted on type %q", typeName)}
}
