// Package directory keeps a time-bounded, process-wide snapshot of the
// organization directory (groups with roles, persons, statuses) used to render
// names for membership rules.
package directory

import (
	"context"
	"fmt"
)

// Group is a directory group together with the roles its group type defines.
type Group struct {
	ID    int64
	Name  string
	Roles []Role
}

// Role is a group role. Filters reference roles by GroupTypeRoleID, which is
// what the backend exposes as "role.id".
type Role struct {
	ID              int64
	GroupTypeRoleID int64
	Name            string
}

type Person struct {
	ID        int64
	FirstName string
	LastName  string
	Nickname  string
}

// DisplayName renders "First (Nick) Last", or "First Last" without a nickname.
func (p Person) DisplayName() string {
	if p.Nickname != "" {
		return fmt.Sprintf("%s (%s) %s", p.FirstName, p.Nickname, p.LastName)
	}
	return fmt.Sprintf("%s %s", p.FirstName, p.LastName)
}

type Status struct {
	ID   int64
	Name string
}

// Source lists the directory. Implementations return transport and server
// errors unchanged.
type Source interface {
	ListGroups(ctx context.Context) ([]Group, error)
	ListPersons(ctx context.Context) ([]Person, error)
	ListStatuses(ctx context.Context) ([]Status, error)
}
