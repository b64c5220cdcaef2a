package filter

import (
	"encoding/json"
	"strconv"
)

// JSON Logic operator keywords understood by the directory backend.
const (
	opAnd    = "and"
	opOr     = "or"
	opEq     = "=="
	opIsNull = "isnull"
	opOneOf  = "oneof"
	opVar    = "var"
)

// Directory variables referenced by the grammar.
const (
	VarPersonArchived    = "person.isArchived"
	VarPersonDateOfDeath = "person.dateOfDeath"
	VarPersonID          = "person.id"
	VarPersonStatusID    = "person.statusId"
	VarGroupID           = "ctgroup.id"
	VarGroupMemberStatus = "groupmember.groupMemberStatus"
	VarRoleID            = "role.id"

	groupMemberActive = "active"
)

// Parse interprets tree as a list of filters. tree uses the generic shape produced
// by encoding/json. The second result is false when the tree does not follow the
// fixed grammar; such a tree is an advanced query and is never partially decoded.
func Parse(tree any) ([]Filter, bool) {
	and, ok := operands(tree, opAnd)
	if !ok || len(and) < 2 {
		return nil, false
	}
	if !isBaseArchived(and[0]) || !isBaseAlive(and[1]) {
		return nil, false
	}
	tail := and[2:]

	if alternatives, ok := orTail(tail); ok {
		if len(alternatives) == 0 {
			return nil, false
		}
		filters := make([]Filter, 0, len(alternatives))
		for _, clause := range alternatives {
			f, ok := parseClause(clause)
			if !ok {
				return nil, false
			}
			filters = append(filters, f)
		}
		return filters, true
	}

	f, ok := parseClause(tail)
	if !ok {
		return nil, false
	}
	return []Filter{f}, true
}

// ParseJSON decodes data and parses the result. Invalid JSON is reported as
// unrecognized.
func ParseJSON(data []byte) ([]Filter, bool) {
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, false
	}
	return Parse(tree)
}

// Build renders filters as a query tree. An empty list yields nil: no query at
// all, not the base conditions on their own.
func Build(filters []Filter) any {
	switch len(filters) {
	case 0:
		return nil
	case 1:
		and := append(baseConditions(), filters[0].clause()...)
		return node(opAnd, and)
	default:
		alternatives := make([]any, 0, len(filters))
		for _, f := range filters {
			alternatives = append(alternatives, node(opAnd, f.clause()))
		}
		and := append(baseConditions(), node(opOr, alternatives))
		return node(opAnd, and)
	}
}

// BuildJSON marshals Build(filters). An empty list encodes as null.
func BuildJSON(filters []Filter) (json.RawMessage, error) {
	return json.Marshal(Build(filters))
}

func (f PersonFilter) clause() []any {
	return []any{eq(VarPersonID, formatID(f.PersonID))}
}

func (f StatusFilter) clause() []any {
	return []any{eq(VarPersonStatusID, formatID(f.StatusID))}
}

func (f GroupFilter) clause() []any {
	clause := []any{
		eq(VarGroupID, formatID(f.GroupID)),
		eq(VarGroupMemberStatus, groupMemberActive),
	}
	if len(f.RoleIDs) > 0 {
		roles := make([]any, 0, len(f.RoleIDs))
		for _, id := range f.RoleIDs {
			roles = append(roles, formatID(id))
		}
		clause = append(clause, node(opOneOf, []any{variable(VarRoleID), roles}))
	}
	return clause
}

func baseConditions() []any {
	return []any{
		node(opEq, []any{variable(VarPersonArchived), float64(0)}),
		node(opIsNull, []any{variable(VarPersonDateOfDeath)}),
	}
}

func node(op string, args []any) map[string]any { return map[string]any{op: args} }

func variable(name string) map[string]any { return map[string]any{opVar: name} }

func eq(name string, value string) map[string]any {
	return node(opEq, []any{variable(name), value})
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

// parseID accepts positive decimal ids only: "12abc", "", "1.5", "+5", "-5"
// and "0" are all rejected.
func parseID(s string) (int64, bool) {
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseClause tries group, person and status in that order.
func parseClause(clause []any) (Filter, bool) {
	if f, ok := parseGroupClause(clause); ok {
		return f, true
	}
	if f, ok := parseSingleEq(clause, VarPersonID); ok {
		return PersonFilter{PersonID: f}, true
	}
	if f, ok := parseSingleEq(clause, VarPersonStatusID); ok {
		return StatusFilter{StatusID: f}, true
	}
	return nil, false
}

func parseGroupClause(clause []any) (Filter, bool) {
	if len(clause) < 2 || len(clause) > 3 {
		return nil, false
	}
	rawGroup, ok := matchEq(clause[0], VarGroupID)
	if !ok {
		return nil, false
	}
	status, ok := matchEq(clause[1], VarGroupMemberStatus)
	if !ok || status != groupMemberActive {
		return nil, false
	}
	groupID, ok := parseID(rawGroup)
	if !ok {
		return nil, false
	}

	var roleIDs []int64
	if len(clause) == 3 {
		args, ok := operands(clause[2], opOneOf)
		if !ok || len(args) != 2 || !isVar(args[0], VarRoleID) {
			return nil, false
		}
		list, ok := args[1].([]any)
		if !ok {
			return nil, false
		}
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			id, ok := parseID(s)
			if !ok {
				return nil, false
			}
			roleIDs = append(roleIDs, id)
		}
	}
	return GroupFilter{GroupID: groupID, RoleIDs: roleIDs}, true
}

func parseSingleEq(clause []any, name string) (int64, bool) {
	if len(clause) != 1 {
		return 0, false
	}
	raw, ok := matchEq(clause[0], name)
	if !ok {
		return 0, false
	}
	return parseID(raw)
}

// orTail matches a tail of exactly [{"or": [{"and": [...]}, ...]}] and returns
// the inner clause groups.
func orTail(tail []any) ([][]any, bool) {
	if len(tail) != 1 {
		return nil, false
	}
	alternatives, ok := operands(tail[0], opOr)
	if !ok {
		return nil, false
	}
	clauses := make([][]any, 0, len(alternatives))
	for _, alt := range alternatives {
		clause, ok := operands(alt, opAnd)
		if !ok {
			return nil, false
		}
		clauses = append(clauses, clause)
	}
	return clauses, true
}

// operands returns the argument list of a single-operator node {op: [...]}.
func operands(v any, op string) ([]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, false
	}
	args, ok := m[op].([]any)
	return args, ok
}

func isVar(v any, name string) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	s, ok := m[opVar].(string)
	return ok && s == name
}

// matchEq matches {"==": [{"var": name}, "<string>"]} and returns the string.
func matchEq(v any, name string) (string, bool) {
	args, ok := operands(v, opEq)
	if !ok || len(args) != 2 || !isVar(args[0], name) {
		return "", false
	}
	s, ok := args[1].(string)
	return s, ok
}

func isBaseArchived(v any) bool {
	args, ok := operands(v, opEq)
	if !ok || len(args) != 2 || !isVar(args[0], VarPersonArchived) {
		return false
	}
	return isZero(args[1])
}

func isBaseAlive(v any) bool {
	args, ok := operands(v, opIsNull)
	return ok && len(args) == 1 && isVar(args[0], VarPersonDateOfDeath)
}

func isZero(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 0
	case int:
		return n == 0
	case int64:
		return n == 0
	case json.Number:
		return n.String() == "0"
	}
	return false
}
