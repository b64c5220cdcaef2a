package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mailist/mailist/internal/filter"
)

// ParseFilterSpec parses a command-line filter:
//
//	person:<id>
//	status:<id>
//	group:<id>
//	group:<id>:<role>,<role>,...
func ParseFilterSpec(spec string) (filter.Filter, error) {
	kind, rest, ok := strings.Cut(strings.TrimSpace(spec), ":")
	if !ok || rest == "" {
		return nil, fmt.Errorf("invalid filter %q, expected kind:id", spec)
	}

	switch filter.Kind(kind) {
	case filter.KindPerson:
		id, err := parsePositive(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid person filter %q: %w", spec, err)
		}
		return filter.PersonFilter{PersonID: id}, nil
	case filter.KindStatus:
		id, err := parsePositive(rest)
		if err != nil {
			return nil, fmt.Errorf("invalid status filter %q: %w", spec, err)
		}
		return filter.StatusFilter{StatusID: id}, nil
	case filter.KindGroup:
		groupPart, rolePart, hasRoles := strings.Cut(rest, ":")
		groupID, err := parsePositive(groupPart)
		if err != nil {
			return nil, fmt.Errorf("invalid group filter %q: %w", spec, err)
		}
		var roles []int64
		if hasRoles {
			for _, r := range strings.Split(rolePart, ",") {
				roleID, err := parsePositive(r)
				if err != nil {
					return nil, fmt.Errorf("invalid role in group filter %q: %w", spec, err)
				}
				roles = append(roles, roleID)
			}
		}
		return filter.GroupFilter{GroupID: groupID, RoleIDs: roles}, nil
	default:
		return nil, fmt.Errorf("unknown filter kind %q (use person, group or status)", kind)
	}
}

// ParseFilterSpecs parses specs in order.
func ParseFilterSpecs(specs []string) ([]filter.Filter, error) {
	filters := make([]filter.Filter, 0, len(specs))
	for _, spec := range specs {
		f, err := ParseFilterSpec(spec)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func parsePositive(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%d is not positive", id)
	}
	return id, nil
}
