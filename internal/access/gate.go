// Package access holds the single authorization policy of the service.
// Services call Require before any storage access; handlers never check
// roles inline.
package access

import "github.com/ponyxpress/ponyxpress/internal/models"

type Action string

const (
	ActionLogin Action = "login"
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

type ResourceKind string

const (
	KindRouteTrace  ResourceKind = "route_trace"
	KindMailboxStop ResourceKind = "mailbox_stop"
	KindScanEvent   ResourceKind = "scan_event"
	KindDeliveryLog ResourceKind = "delivery_log"
	KindAccount     ResourceKind = "account"
	KindExport      ResourceKind = "export"
)

// Resource identifies what is being accessed. OwnerID is the carrier that
// owns the record; AnyOwner means "every carrier" (cross-carrier listings).
type Resource struct {
	Kind    ResourceKind
	OwnerID int64
}

const AnyOwner int64 = -1

func RouteTrace(ownerID int64) Resource  { return Resource{Kind: KindRouteTrace, OwnerID: ownerID} }
func MailboxStop(ownerID int64) Resource { return Resource{Kind: KindMailboxStop, OwnerID: ownerID} }
func ScanEvent(ownerID int64) Resource   { return Resource{Kind: KindScanEvent, OwnerID: ownerID} }
func DeliveryLog(ownerID int64) Resource { return Resource{Kind: KindDeliveryLog, OwnerID: ownerID} }
func Account(id int64) Resource          { return Resource{Kind: KindAccount, OwnerID: id} }
func Export() Resource                   { return Resource{Kind: KindExport, OwnerID: AnyOwner} }

type DenyReason string

const (
	ReasonNone              DenyReason = ""
	ReasonNotAuthenticated  DenyReason = "not_authenticated"
	ReasonCrossCarrierWrite DenyReason = "cross_carrier_write"
	ReasonCrossCarrierRead  DenyReason = "cross_carrier_read"
	ReasonAdminOnly         DenyReason = "admin_only"
	ReasonUnknownRole       DenyReason = "unknown_role"
	ReasonRoleNotAllowed    DenyReason = "role_not_allowed"
)

type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Check evaluates the policy. Rules are applied in priority order:
// authentication, admin, carrier, substitute.
func Check(actor *models.Account, action Action, res Resource) Decision {
	if actor == nil || !actor.Active {
		if action == ActionLogin {
			return allow()
		}
		return deny(ReasonNotAuthenticated)
	}
	if action == ActionLogin {
		return allow()
	}

	switch actor.Role {
	case models.RoleAdmin:
		if action == ActionRead {
			return allow()
		}
		if (res.Kind == KindRouteTrace || res.Kind == KindScanEvent) && res.OwnerID != actor.ID {
			return deny(ReasonCrossCarrierWrite)
		}
		return allow()

	case models.RoleCarrier:
		if adminOnly(res.Kind, action) {
			return deny(ReasonAdminOnly)
		}
		if res.OwnerID != actor.ID {
			if action == ActionWrite {
				return deny(ReasonCrossCarrierWrite)
			}
			return deny(ReasonCrossCarrierRead)
		}
		return allow()

	case models.RoleSubstitute:
		if adminOnly(res.Kind, action) {
			return deny(ReasonAdminOnly)
		}
		if res.OwnerID == actor.ID {
			return allow()
		}
		if action == ActionWrite {
			return deny(ReasonCrossCarrierWrite)
		}
		// Подменный почтальон видит маршруты и остановки любого участка.
		if res.Kind == KindRouteTrace || res.Kind == KindMailboxStop {
			return allow()
		}
		return deny(ReasonCrossCarrierRead)
	}

	return deny(ReasonUnknownRole)
}

// Non-admins may read their own account; everything else about accounts,
// exports and aggregate writes belongs to admins.
func adminOnly(kind ResourceKind, action Action) bool {
	switch kind {
	case KindExport:
		return true
	case KindAccount, KindDeliveryLog:
		return action == ActionWrite
	}
	return false
}

// Require is Check returning a *models.DeniedError on rejection.
func Require(actor *models.Account, action Action, res Resource) error {
	d := Check(actor, action, res)
	if d.Allowed {
		return nil
	}
	return &models.DeniedError{Reason: string(d.Reason)}
}

// RequireRole rejects actors whose role is not among roles. Used for
// operations that are tied to a job rather than to record ownership
// (recording a route is a carrier's job even though admins own records too).
func RequireRole(actor *models.Account, roles ...string) error {
	if actor == nil || !actor.Active {
		return &models.DeniedError{Reason: string(ReasonNotAuthenticated)}
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return &models.DeniedError{Reason: string(ReasonRoleNotAllowed)}
}

// CanReadAll reports whether the actor may list a resource kind across all
// carriers (admin and, for routes/stops, substitute).
func CanReadAll(actor *models.Account, kind ResourceKind) bool {
	return Check(actor, ActionRead, Resource{Kind: kind, OwnerID: AnyOwner}).Allowed
}
