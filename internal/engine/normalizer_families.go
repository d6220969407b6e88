package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pawsoft/vetsync/internal/models"
	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

// clientNormalizer handles pet owners. Email is the natural key and is
// stored lowercased so retried creates match regardless of casing.
type clientNormalizer struct{}

func (n *clientNormalizer) Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error) {
	var p models.ClientPayload
	present, err := decodePayload(raw, &p)
	if err != nil {
		return nil, err
	}

	f := newFieldSet(kind, present)

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if f.creating && email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidPayload)
	}
	if f.creating || f.has("email") {
		if email == "" {
			return nil, fmt.Errorf("%w: email cannot be cleared", ErrInvalidPayload)
		}
		f.fields["email"] = email
	}

	f.set("firstName", p.FirstName)
	f.set("lastName", p.LastName)
	f.set("phone", p.Phone)
	f.set("notes", p.Notes)

	if f.has("status") {
		switch p.Status {
		case models.ClientStatusActive, models.ClientStatusArchived:
			f.fields["status"] = p.Status
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidPayload, p.Status)
		}
	}
	f.setDefault("status", models.ClientStatusActive)

	return f.fields, nil
}

// petNormalizer handles animals. A pet always belongs to an existing
// client.
type petNormalizer struct {
	repo storage.Repository
}

func (n *petNormalizer) Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error) {
	var p models.PetPayload
	present, err := decodePayload(raw, &p)
	if err != nil {
		return nil, err
	}

	f := newFieldSet(kind, present)

	if f.creating && strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}
	f.set("name", strings.TrimSpace(p.Name))

	if f.creating || f.has("clientId") {
		if _, err := lookupParent(ctx, n.repo, tenantID, CollectionClients, p.ClientID, "client"); err != nil {
			return nil, err
		}
		f.fields["clientId"] = p.ClientID
	}

	f.set("species", p.Species)
	f.set("breed", p.Breed)
	f.set("sex", p.Sex)
	f.set("microchip", p.Microchip)
	f.set("notes", p.Notes)
	f.setTime("birthDate", p.BirthDate)

	return f.fields, nil
}

// appointmentNormalizer handles scheduled visits. The owning client id
// is copied from the referenced pet, never trusted from the wire, and
// the workflow status is owned by the approve/reject transitions.
type appointmentNormalizer struct {
	repo storage.Repository
}

func (n *appointmentNormalizer) Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error) {
	var p models.AppointmentPayload
	present, err := decodePayload(raw, &p)
	if err != nil {
		return nil, err
	}

	f := newFieldSet(kind, present)

	if f.creating || f.has("petId") {
		pet, err := lookupParent(ctx, n.repo, tenantID, CollectionPets, p.PetID, "pet")
		if err != nil {
			return nil, err
		}
		f.fields["petId"] = p.PetID
		f.fields["clientId"] = pet.Fields["clientId"]
	}

	f.setTime("startsAt", p.StartsAt)
	f.setTime("endsAt", p.EndsAt)
	f.set("reason", p.Reason)

	// Status is owned by the approve/reject transitions; whatever the
	// client echoes back is discarded.
	if f.creating {
		f.fields["status"] = models.AppointmentStatusPending
	}

	return f.fields, nil
}

// clinicalNoteNormalizer handles medical record entries.
type clinicalNoteNormalizer struct {
	repo storage.Repository
	now  func() time.Time
}

func (n *clinicalNoteNormalizer) Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error) {
	var p models.ClinicalNotePayload
	present, err := decodePayload(raw, &p)
	if err != nil {
		return nil, err
	}

	f := newFieldSet(kind, present)

	if f.creating || f.has("petId") {
		pet, err := lookupParent(ctx, n.repo, tenantID, CollectionPets, p.PetID, "pet")
		if err != nil {
			return nil, err
		}
		f.fields["petId"] = p.PetID
		f.fields["clientId"] = pet.Fields["clientId"]
	}

	f.set("body", p.Body)
	f.set("kind", p.Kind)
	f.setDefault("kind", "general")
	f.setTime("recordedAt", p.RecordedAt)
	if f.creating && p.RecordedAt.IsZero() {
		f.fields["recordedAt"] = n.now().UTC().Format(time.RFC3339)
	}

	return f.fields, nil
}

// admissionNormalizer handles in-patient admissions. Status is owned by
// the discharge transition.
type admissionNormalizer struct {
	repo storage.Repository
	now  func() time.Time
}

func (n *admissionNormalizer) Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error) {
	var p models.AdmissionPayload
	present, err := decodePayload(raw, &p)
	if err != nil {
		return nil, err
	}

	f := newFieldSet(kind, present)

	if f.creating || f.has("petId") {
		pet, err := lookupParent(ctx, n.repo, tenantID, CollectionPets, p.PetID, "pet")
		if err != nil {
			return nil, err
		}
		f.fields["petId"] = p.PetID
		f.fields["clientId"] = pet.Fields["clientId"]
	}

	f.set("reason", p.Reason)
	if f.creating {
		f.fields["status"] = models.AdmissionStatusAdmitted
	}
	f.setTime("admittedAt", p.AdmittedAt)
	if f.creating && p.AdmittedAt.IsZero() {
		f.fields["admittedAt"] = n.now().UTC().Format(time.RFC3339)
	}

	return f.fields, nil
}

// stayNormalizer handles boarding stays. Both pet and client keys are
// copied from the owning admission.
type stayNormalizer struct {
	repo storage.Repository
}

func (n *stayNormalizer) Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error) {
	var p models.StayPayload
	present, err := decodePayload(raw, &p)
	if err != nil {
		return nil, err
	}

	f := newFieldSet(kind, present)

	if f.creating || f.has("admissionId") {
		admission, err := lookupParent(ctx, n.repo, tenantID, CollectionAdmissions, p.AdmissionID, "admission")
		if err != nil {
			return nil, err
		}
		f.fields["admissionId"] = p.AdmissionID
		f.fields["petId"] = admission.Fields["petId"]
		f.fields["clientId"] = admission.Fields["clientId"]
	}

	f.set("kennel", p.Kennel)
	f.set("notes", p.Notes)
	f.setTime("checkIn", p.CheckIn)
	f.setTime("checkOut", p.CheckOut)

	return f.fields, nil
}
