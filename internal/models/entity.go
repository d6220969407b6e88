package models

// EntityKind enumerates every entity family the engine can reconcile.
// The set is closed: dispatch on EntityKind is exhaustiveness-checkable,
// and an unsupported entity type can only exist at the wire boundary,
// where ParseEntityKind rejects it.
type EntityKind int

const (
	KindClient EntityKind = iota
	KindPet
	KindAppointment
	KindClinicalNote
	KindAdmission
	KindStay
)

// kindNames maps kinds to their wire names.
var kindNames = map[EntityKind]string{
	KindClient:       "client",
	KindPet:          "pet",
	KindAppointment:  "appointment",
	KindClinicalNote: "clinicalNote",
	KindAdmission:    "admission",
	KindStay:         "stay",
}

var kindsByName = func() map[string]EntityKind {
	m := make(map[string]EntityKind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// String returns the wire name of the kind.
func (k EntityKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// AllEntityKinds returns every supported kind in declaration order.
func AllEntityKinds() []EntityKind {
	return []EntityKind{KindClient, KindPet, KindAppointment, KindClinicalNote, KindAdmission, KindStay}
}

// ParseEntityKind resolves a wire entity type name.
func ParseEntityKind(name string) (EntityKind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Workflow statuses. Transitions between them are guarded per entity
// family by the registry, never by generic update code.
const (
	ClientStatusActive   = "active"
	ClientStatusArchived = "archived"

	AppointmentStatusPending  = "pending"
	AppointmentStatusApproved = "approved"
	AppointmentStatusRejected = "rejected"

	AdmissionStatusAdmitted   = "admitted"
	AdmissionStatusDischarged = "discharged"
)
