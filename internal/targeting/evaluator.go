// Package targeting evaluates membership rule queries against a single
// directory member record, the way the mail relay decides who qualifies.
// It uses JSON Logic (jsonlogic.com) with the two extra operators the directory
// backend understands: "isnull" and "oneof".
package targeting

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/diegoholiveira/jsonlogic/v3"
)

// Member is one row the backend evaluates a query against: a person, and
// optionally one of their group memberships with the role held in it.
type Member struct {
	PersonID          int64   `json:"personId"`
	Archived          bool    `json:"archived"`
	DateOfDeath       *string `json:"dateOfDeath,omitempty"`
	StatusID          int64   `json:"statusId"`
	GroupID           *int64  `json:"groupId,omitempty"`
	GroupMemberStatus string  `json:"groupMemberStatus,omitempty"`
	RoleID            *int64  `json:"roleId,omitempty"`
}

// data renders the member with the variable layout the grammar references
// ("person.id", "ctgroup.id", ...). Ids are strings, as in the queries.
func (m Member) data() map[string]any {
	archived := 0
	if m.Archived {
		archived = 1
	}
	var dateOfDeath any
	if m.DateOfDeath != nil {
		dateOfDeath = *m.DateOfDeath
	}
	d := map[string]any{
		"person": map[string]any{
			"id":          strconv.FormatInt(m.PersonID, 10),
			"isArchived":  archived,
			"dateOfDeath": dateOfDeath,
			"statusId":    strconv.FormatInt(m.StatusID, 10),
		},
	}
	if m.GroupID != nil {
		d["ctgroup"] = map[string]any{"id": strconv.FormatInt(*m.GroupID, 10)}
		d["groupmember"] = map[string]any{"groupMemberStatus": m.GroupMemberStatus}
	}
	if m.RoleID != nil {
		d["role"] = map[string]any{"id": strconv.FormatInt(*m.RoleID, 10)}
	}
	return d
}

// ErrInvalidExpression is returned when a query cannot be applied as JSON Logic.
var ErrInvalidExpression = errors.New("invalid expression: not valid JSON Logic")

// ErrEmptyExpression is returned by ValidateQuery for a nil query.
var ErrEmptyExpression = errors.New("invalid expression: empty query")

var registerOnce sync.Once

func registerOperators() {
	registerOnce.Do(func() {
		jsonlogic.AddOperator("isnull", func(values, data interface{}) interface{} {
			args := resolveArgs(values, data)
			return len(args) == 1 && args[0] == nil
		})
		jsonlogic.AddOperator("oneof", func(values, data interface{}) interface{} {
			args := resolveArgs(values, data)
			if len(args) != 2 {
				return false
			}
			list, ok := args[1].([]interface{})
			if !ok {
				return false
			}
			for _, item := range list {
				if fmt.Sprint(item) == fmt.Sprint(args[0]) && args[0] != nil {
					return true
				}
			}
			return false
		})
	})
}

// resolveArgs evaluates operator arguments against data. Evaluating an
// already-resolved value returns it unchanged, so this works whether or not
// the engine resolved them first.
func resolveArgs(values, data interface{}) []interface{} {
	list, ok := values.([]interface{})
	if !ok {
		list = []interface{}{values}
	}
	out := make([]interface{}, 0, len(list))
	for _, v := range list {
		resolved, err := jsonlogic.ApplyInterface(v, data)
		if err != nil {
			resolved = v
		}
		out = append(out, resolved)
	}
	return out
}

// Evaluate reports whether m satisfies query. A nil query matches nobody.
func Evaluate(query any, m Member) (bool, error) {
	if query == nil {
		return false, nil
	}
	registerOperators()

	ruleBytes, err := json.Marshal(query)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	dataBytes, err := json.Marshal(m.data())
	if err != nil {
		return false, err
	}

	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(ruleBytes), bytes.NewReader(dataBytes), &resultBuf); err != nil {
		return false, ErrInvalidExpression
	}

	var result any
	if err := json.Unmarshal(resultBuf.Bytes(), &result); err != nil {
		return false, err
	}
	return isTruthy(result), nil
}

// ValidateQuery checks that query can be applied by the engine. It says
// nothing about whether the query follows the filter grammar.
func ValidateQuery(query any) error {
	if query == nil {
		return ErrEmptyExpression
	}
	registerOperators()

	ruleBytes, err := json.Marshal(query)
	if err != nil {
		return ErrInvalidExpression
	}
	var resultBuf bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(ruleBytes), bytes.NewReader([]byte("{}")), &resultBuf); err != nil {
		return ErrInvalidExpression
	}
	return nil
}

// isTruthy follows JavaScript-like truthiness rules.
func isTruthy(v any) bool {
	if v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
