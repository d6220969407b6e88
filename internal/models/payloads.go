package models

// Typed wire shapes per entity family. Raw operation payloads are
// decoded into these at the normalizer boundary; fields the server
// derives or denormalizes for read views (pet counts, embedded parent
// summaries, display names) are deliberately absent and get stripped.
//
// The optional ID on each shape is a client-local placeholder used to
// let later operations in the same batch reference a record created
// earlier in it. It is never stored.

// ClientPayload is a pet owner. Email is the family's natural key and
// what makes duplicate creates detectable across retries.
type ClientPayload struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// PetPayload is an animal owned by a client.
type PetPayload struct {
	ID        string   `json:"id,omitempty"`
	ClientID  string   `json:"clientId"`
	Name      string   `json:"name"`
	Species   string   `json:"species,omitempty"`
	Breed     string   `json:"breed,omitempty"`
	Sex       string   `json:"sex,omitempty"`
	BirthDate FlexTime `json:"birthDate,omitempty"`
	Microchip string   `json:"microchip,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// AppointmentPayload is a scheduled visit. ClientID is never taken from
// the wire; it is copied from the referenced pet.
type AppointmentPayload struct {
	ID              string   `json:"id,omitempty"`
	PetID           string   `json:"petId"`
	StartsAt        FlexTime `json:"startsAt,omitempty"`
	EndsAt          FlexTime `json:"endsAt,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	Status          string   `json:"status,omitempty"`
	RejectionReason string   `json:"rejectionReason,omitempty"`
}

// ClinicalNotePayload is a medical record entry for a pet.
type ClinicalNotePayload struct {
	ID         string   `json:"id,omitempty"`
	PetID      string   `json:"petId"`
	Kind       string   `json:"kind,omitempty"`
	Body       string   `json:"body,omitempty"`
	RecordedAt FlexTime `json:"recordedAt,omitempty"`
}

// AdmissionPayload is an in-patient admission of a pet.
type AdmissionPayload struct {
	ID         string   `json:"id,omitempty"`
	PetID      string   `json:"petId"`
	Reason     string   `json:"reason,omitempty"`
	AdmittedAt FlexTime `json:"admittedAt,omitempty"`
	Status     string   `json:"status,omitempty"`
}

// StayPayload is a boarding stay under an admission. PetID and ClientID
// are copied from the admission, not trusted from the wire.
type StayPayload struct {
	ID          string   `json:"id,omitempty"`
	AdmissionID string   `json:"admissionId"`
	Kennel      string   `json:"kennel,omitempty"`
	CheckIn     FlexTime `json:"checkIn,omitempty"`
	CheckOut    FlexTime `json:"checkOut,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}
