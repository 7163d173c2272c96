// Package ability evaluates authorization decisions against a user's stored
// role permissions. Permission rows are materialized once into a Set; checks
// are then plain map lookups, with no per-request rule construction.
package ability

import "github.com/rumsan/gatekeeper/core"

// Actions understood by the permission model. ActionManage is a wildcard
// that expands to every concrete action.
const (
	ActionManage  = "manage"
	ActionCreate  = "create"
	ActionRead    = "read"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionVerify  = "verify"
	ActionApprove = "approve"
	ActionRestore = "restore"
)

// Subjects with special meaning. SubjectAll matches any subject;
// SubjectPublic is readable by every authenticated user.
const (
	SubjectAll    = "all"
	SubjectPublic = "public"
)

var concreteActions = []string{
	ActionCreate,
	ActionRead,
	ActionUpdate,
	ActionDelete,
	ActionVerify,
	ActionApprove,
	ActionRestore,
}

type pair struct {
	action  string
	subject string
}

// Set is a materialized capability set. The zero value denies everything
// except reading public subjects.
type Set struct {
	allowed map[pair]struct{}
	denied  map[pair]struct{}
}

// NewSet builds a Set from stored permission rows. Manage and "*" actions
// expand to all concrete actions; inverted rows subtract instead of grant.
func NewSet(permissions []core.Permission) *Set {
	s := &Set{
		allowed: make(map[pair]struct{}, len(permissions)),
		denied:  make(map[pair]struct{}),
	}

	for _, p := range permissions {
		for _, action := range expand(p.Action) {
			key := pair{action: action, subject: p.Subject}
			if p.Inverted {
				s.denied[key] = struct{}{}
			} else {
				s.allowed[key] = struct{}{}
			}
		}
	}

	return s
}

// Can reports whether the set permits action on subject. Denials take
// precedence over grants; a grant on SubjectAll covers every subject.
func (s *Set) Can(action, subject string) bool {
	if action == ActionManage || action == "*" {
		for _, a := range concreteActions {
			if s.Can(a, subject) {
				return true
			}
		}
		return false
	}

	if s.denied != nil {
		if _, ok := s.denied[pair{action, subject}]; ok {
			return false
		}
		if _, ok := s.denied[pair{action, SubjectAll}]; ok {
			return false
		}
	}

	if action == ActionRead && subject == SubjectPublic {
		return true
	}

	if s.allowed == nil {
		return false
	}
	if _, ok := s.allowed[pair{action, subject}]; ok {
		return true
	}
	_, ok := s.allowed[pair{action, SubjectAll}]
	return ok
}

func expand(action string) []string {
	if action == ActionManage || action == "*" {
		return concreteActions
	}
	return []string{action}
}
