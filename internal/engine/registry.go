package engine

import (
	"time"

	"github.com/pawsoft/vetsync/internal/models"
	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

// Storage collection names.
const (
	CollectionClients       = "clients"
	CollectionPets          = "pets"
	CollectionAppointments  = "appointments"
	CollectionClinicalNotes = "clinical_notes"
	CollectionAdmissions    = "admissions"
	CollectionStays         = "stays"
)

// Entry describes how one entity family is stored, keyed and normalized.
type Entry struct {
	Kind       models.EntityKind
	Collection string

	// NaturalKeyField names the document field enforcing business
	// uniqueness, empty when the family has none.
	NaturalKeyField string

	// ReferenceFields are payload fields that may carry client-local
	// placeholder ids resolvable within a batch.
	ReferenceFields []string

	Normalizer Normalizer

	// Transitions maps named operations to their guarded state changes.
	Transitions map[api.OpKind]Transition
}

// Transition is a guarded state change for one entity family. The
// record must currently be in status From; it ends in status To.
type Transition struct {
	From string
	To   string

	// Extra returns transition-specific fields applied together with
	// the new status. payload is the decoded operation payload and may
	// be nil.
	Extra func(payload map[string]any, now time.Time) map[string]any
}

// Registry is the closed mapping from entity kinds to their entries.
type Registry struct {
	entries map[models.EntityKind]*Entry
}

// NewRegistry builds the registry. repo is needed by normalizers that
// derive parent keys; now supplies default timestamps.
func NewRegistry(repo storage.Repository, now func() time.Time) *Registry {
	entries := map[models.EntityKind]*Entry{
		models.KindClient: {
			Kind:            models.KindClient,
			Collection:      CollectionClients,
			NaturalKeyField: "email",
			Normalizer:      &clientNormalizer{},
		},
		models.KindPet: {
			Kind:            models.KindPet,
			Collection:      CollectionPets,
			ReferenceFields: []string{"clientId"},
			Normalizer:      &petNormalizer{repo: repo},
		},
		models.KindAppointment: {
			Kind:            models.KindAppointment,
			Collection:      CollectionAppointments,
			ReferenceFields: []string{"petId"},
			Normalizer:      &appointmentNormalizer{repo: repo},
			Transitions: map[api.OpKind]Transition{
				api.OpApprove: {
					From: models.AppointmentStatusPending,
					To:   models.AppointmentStatusApproved,
				},
				api.OpReject: {
					From: models.AppointmentStatusPending,
					To:   models.AppointmentStatusRejected,
					Extra: func(payload map[string]any, _ time.Time) map[string]any {
						reason, _ := payload["rejectionReason"].(string)
						return map[string]any{"rejectionReason": reason}
					},
				},
			},
		},
		models.KindClinicalNote: {
			Kind:            models.KindClinicalNote,
			Collection:      CollectionClinicalNotes,
			ReferenceFields: []string{"petId"},
			Normalizer:      &clinicalNoteNormalizer{repo: repo, now: now},
		},
		models.KindAdmission: {
			Kind:            models.KindAdmission,
			Collection:      CollectionAdmissions,
			ReferenceFields: []string{"petId"},
			Normalizer:      &admissionNormalizer{repo: repo, now: now},
			Transitions: map[api.OpKind]Transition{
				api.OpDischarge: {
					From: models.AdmissionStatusAdmitted,
					To:   models.AdmissionStatusDischarged,
					Extra: func(_ map[string]any, now time.Time) map[string]any {
						return map[string]any{"dischargedAt": now.UTC().Format(time.RFC3339)}
					},
				},
			},
		},
		models.KindStay: {
			Kind:            models.KindStay,
			Collection:      CollectionStays,
			ReferenceFields: []string{"admissionId"},
			Normalizer:      &stayNormalizer{repo: repo},
		},
	}

	return &Registry{entries: entries}
}

// Lookup returns the entry for a kind. The kind set is closed, so a
// missing entry is a programming error, not a runtime condition.
func (r *Registry) Lookup(kind models.EntityKind) *Entry {
	return r.entries[kind]
}
