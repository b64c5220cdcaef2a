// Package validation provides validation rules for distribution lists, filters
// and raw queries accepted by the API.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mailist/mailist/internal/filter"
)

const (
	// MaxAliasLength is the maximum length for list aliases
	MaxAliasLength = 64
	// MaxQuerySize is the maximum size of a stored query in bytes
	MaxQuerySize = 100 * 1024 // 100KB
	// MaxFilters is the maximum number of filters in one rule
	MaxFilters = 500
)

// aliasPattern matches the local part of a list address
var aliasPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// ValidationResult holds the result of validation
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// NewValidationResult creates a new validation result
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  true,
		Errors: make(map[string]string),
	}
}

// AddError adds a field error and marks the result as invalid
func (v *ValidationResult) AddError(field, message string) {
	v.Valid = false
	v.Errors[field] = message
}

// Merge combines another validation result into this one
func (v *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		v.AddError(field, message)
	}
}

// ListValidationParams contains the parameters for validating a list
type ListValidationParams struct {
	Alias           string
	SendersQuery    []byte
	RecipientsQuery []byte
}

// ValidateList validates all list fields and returns a validation result
func ValidateList(params ListValidationParams) *ValidationResult {
	result := NewValidationResult()
	result.Merge(ValidateAlias(params.Alias))
	result.Merge(ValidateQuerySize("sendersQuery", params.SendersQuery))
	result.Merge(ValidateQuerySize("recipientsQuery", params.RecipientsQuery))
	return result
}

// ValidateAlias validates a list alias
func ValidateAlias(alias string) *ValidationResult {
	result := NewValidationResult()
	alias = strings.TrimSpace(alias)

	if alias == "" {
		result.AddError("alias", "Alias is required")
		return result
	}

	if utf8.RuneCountInString(alias) > MaxAliasLength {
		result.AddError("alias", "Alias must not exceed 64 characters")
		return result
	}

	if !aliasPattern.MatchString(alias) {
		result.AddError("alias", "Alias must start with a lowercase letter or digit and contain only lowercase letters, digits, dots, underscores, and hyphens")
		return result
	}

	return result
}

// ValidateQuerySize validates the size of a raw query
func ValidateQuerySize(field string, query []byte) *ValidationResult {
	result := NewValidationResult()

	if len(query) > MaxQuerySize {
		result.AddError(field, "Query must not exceed 100KB")
	}

	return result
}

// ValidateFilters validates a filter list before it is compiled. Ids must be
// positive and a group filter must not repeat a role.
func ValidateFilters(filters []filter.Filter) *ValidationResult {
	result := NewValidationResult()

	if len(filters) > MaxFilters {
		result.AddError("filters", fmt.Sprintf("A rule must not have more than %d filters", MaxFilters))
		return result
	}

	for i, f := range filters {
		field := fmt.Sprintf("filters[%d]", i)
		switch v := f.(type) {
		case filter.PersonFilter:
			if v.PersonID <= 0 {
				result.AddError(field, "personId must be positive")
			}
		case filter.StatusFilter:
			if v.StatusID <= 0 {
				result.AddError(field, "statusId must be positive")
			}
		case filter.GroupFilter:
			if v.GroupID <= 0 {
				result.AddError(field, "groupId must be positive")
				continue
			}
			seen := make(map[int64]bool, len(v.RoleIDs))
			for _, roleID := range v.RoleIDs {
				if roleID <= 0 {
					result.AddError(field, "roleIds must be positive")
					break
				}
				if seen[roleID] {
					result.AddError(field, fmt.Sprintf("Duplicate role id: %d", roleID))
					break
				}
				seen[roleID] = true
			}
		}
	}

	return result
}
