package auth

import (
	"github.com/google/uuid"
)

// Authorizer is the injected access-control capability. Mutating
// operations check it explicitly at dispatch: batch opening and
// fulfillment require the operator role, request submission requires
// the whitelist. Cancellation only requires acting on one's own
// request.
type Authorizer interface {
	IsOperator(caller uuid.UUID) bool
	IsWhitelisted(caller uuid.UUID) bool
}

// StaticAuthorizer is a fixed-membership Authorizer for local runs
// and tests. Production deployments back this with the fund's RBAC
// service.
type StaticAuthorizer struct {
	operators   map[uuid.UUID]bool
	whitelisted map[uuid.UUID]bool
}

func NewStaticAuthorizer() *StaticAuthorizer {
	return &StaticAuthorizer{
		operators:   make(map[uuid.UUID]bool),
		whitelisted: make(map[uuid.UUID]bool),
	}
}

func (a *StaticAuthorizer) AddOperator(id uuid.UUID) {
	a.operators[id] = true
}

func (a *StaticAuthorizer) AddWhitelisted(id uuid.UUID) {
	a.whitelisted[id] = true
}

func (a *StaticAuthorizer) IsOperator(caller uuid.UUID) bool {
	return a.operators[caller]
}

func (a *StaticAuthorizer) IsWhitelisted(caller uuid.UUID) bool {
	return a.whitelisted[caller]
}
