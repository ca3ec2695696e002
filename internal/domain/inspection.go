// Package domain contains core business types and interfaces.
//
// This file defines the Inspection domain type and related types for
// managing municipal building-code inspection cases ("chamados").
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Inspection Status
// =============================================================================

// InspectionStatus represents the lifecycle state of an inspection case.
//
// The order of the constants is display convention only: any status is
// reachable from any other through the edit surface. The single automatic
// transition is enforced by the service layer (scheduling a follow-up forces
// StatusPendingFollowUp).
type InspectionStatus string

const (
	// StatusOpen indicates a newly registered case with no inspector assigned.
	StatusOpen InspectionStatus = "Aberto"

	// StatusUnderReview indicates the case has been assigned and is being
	// evaluated before field work starts.
	StatusUnderReview InspectionStatus = "Em Análise"

	// StatusInProgress indicates field work is underway.
	StatusInProgress InspectionStatus = "Em Andamento"

	// StatusPendingFollowUp indicates a return visit has been scheduled.
	StatusPendingFollowUp InspectionStatus = "Pendente de Retorno"

	// StatusClosed indicates the case has been concluded. Closed cases can
	// still be edited and re-opened through a status change.
	StatusClosed InspectionStatus = "Concluído"
)

// AllStatuses lists every status in display order.
var AllStatuses = []InspectionStatus{
	StatusOpen,
	StatusUnderReview,
	StatusInProgress,
	StatusPendingFollowUp,
	StatusClosed,
}

// String returns the string representation of the status.
func (s InspectionStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s InspectionStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusUnderReview, StatusInProgress,
		StatusPendingFollowUp, StatusClosed:
		return true
	}
	return false
}

// InitialStatus determines the status of a newly created inspection.
// Pre-assigning an inspector skips the open state entirely.
func InitialStatus(inspector string) InspectionStatus {
	if inspector != "" {
		return StatusUnderReview
	}
	return StatusOpen
}

// =============================================================================
// Inspection Source
// =============================================================================

// InspectionSource identifies where a complaint originated.
type InspectionSource string

const (
	SourceInternal        InspectionSource = "Gerência"
	SourceCitizenInPerson InspectionSource = "Contribuinte (Presencial)"
	SourceCitizenWhatsApp InspectionSource = "Contribuinte (WhatsApp)"
	SourceCitizenEmail    InspectionSource = "Contribuinte (Email)"
	SourcePublicMinistry  InspectionSource = "Ministério Público"
	SourceOmbudsman       InspectionSource = "Ouvidoria Municipal"
	SourceCivilDefense    InspectionSource = "Defesa Civil"
	SourceOtherDepartment InspectionSource = "Outras Secretarias"
)

// AllSources lists every complaint origin in display order.
var AllSources = []InspectionSource{
	SourceInternal,
	SourceCitizenInPerson,
	SourceCitizenWhatsApp,
	SourceCitizenEmail,
	SourcePublicMinistry,
	SourceOmbudsman,
	SourceCivilDefense,
	SourceOtherDepartment,
}

// String returns the string representation of the source.
func (s InspectionSource) String() string {
	return string(s)
}

// IsValid returns true if the source is a recognized value.
func (s InspectionSource) IsValid() bool {
	for _, v := range AllSources {
		if s == v {
			return true
		}
	}
	return false
}

// =============================================================================
// Inspection Type
// =============================================================================

// InspectionType classifies the suspected violation.
type InspectionType string

const (
	TypeConstructionPermit    InspectionType = "Alvará de Construção"
	TypeApprovedProject       InspectionType = "Projeto Aprovado"
	TypeOccupancyPermit       InspectionType = "Habite-se / Ocupação"
	TypeBusinessPermit        InspectionType = "Alvará de Funcionamento"
	TypeLandParcelling        InspectionType = "Parcelamento do Solo"
	TypeWorkOffProject        InspectionType = "Obra em desacordo com projeto aprovado"
	TypeDemolitionNoPermit    InspectionType = "Demolição sem alvará de licença"
	TypeEarthmovingNoPermit   InspectionType = "Movimentação de terra sem alvará de licença"
	TypeElevators             InspectionType = "Elevadores"
	TypeOpeningOnBoundary     InspectionType = "Abertura na divisa"
	TypeSidewalkAccessibility InspectionType = "Acessibilidade em calçadas"
	TypeInfiltration          InspectionType = "Infiltração"
	TypeAcousticInsulation    InspectionType = "Isolamento acústico"
	TypeMarqueesAndRoofs      InspectionType = "Marquise e coberturas"
	TypeMaterialsOnStreet     InspectionType = "Material e massa na rua"
	TypeBoundaryWall          InspectionType = "Muro de vedação"
	TypePropertyMaintenance   InspectionType = "Zelar pelas boas condições do imóvel"
	TypeOther                 InspectionType = "Outro"
)

// AllTypes lists every violation category in display order.
var AllTypes = []InspectionType{
	TypeConstructionPermit,
	TypeApprovedProject,
	TypeOccupancyPermit,
	TypeBusinessPermit,
	TypeLandParcelling,
	TypeWorkOffProject,
	TypeDemolitionNoPermit,
	TypeEarthmovingNoPermit,
	TypeElevators,
	TypeOpeningOnBoundary,
	TypeSidewalkAccessibility,
	TypeInfiltration,
	TypeAcousticInsulation,
	TypeMarqueesAndRoofs,
	TypeMaterialsOnStreet,
	TypeBoundaryWall,
	TypePropertyMaintenance,
	TypeOther,
}

// String returns the string representation of the type.
func (t InspectionType) String() string {
	return string(t)
}

// IsValid returns true if the type is a recognized value.
func (t InspectionType) IsValid() bool {
	for _, v := range AllTypes {
		if t == v {
			return true
		}
	}
	return false
}

// =============================================================================
// Enforcement Action
// =============================================================================

// InspectionAction is an enforcement measure recorded by the inspector.
// The set of actions on a record has set semantics: no duplicates.
type InspectionAction string

const (
	ActionOriented     InspectionAction = "Contribuinte Orientado"
	ActionNotification InspectionAction = "Notificação"
	ActionFine         InspectionAction = "Autuação"
	ActionSeizure      InspectionAction = "Apreensão"
	ActionEmbargo      InspectionAction = "Embargo"
	ActionInterdiction InspectionAction = "Interdição"
	ActionDemolition   InspectionAction = "Demolição"
)

// AllActions lists every enforcement action in display order.
var AllActions = []InspectionAction{
	ActionOriented,
	ActionNotification,
	ActionFine,
	ActionSeizure,
	ActionEmbargo,
	ActionInterdiction,
	ActionDemolition,
}

// String returns the string representation of the action.
func (a InspectionAction) String() string {
	return string(a)
}

// IsValid returns true if the action is a recognized value.
func (a InspectionAction) IsValid() bool {
	for _, v := range AllActions {
		if a == v {
			return true
		}
	}
	return false
}

// =============================================================================
// Nested Collections
// =============================================================================

// Photo is an evidence image attached to a case after creation.
type Photo struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"` // public URL or data URI
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// FollowUp is a scheduled return visit.
type FollowUp struct {
	ID        uuid.UUID `json:"id"`
	Date      string    `json:"date"` // date-only, "2006-01-02"
	Notes     string    `json:"notes"`
	Completed bool      `json:"completed"`
}

// Attachment is a document captured at case creation. Data is an inline
// base64 data URI; attachments cannot be added after creation.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"` // MIME type
	Data string `json:"data"`
}

// HistoryEntry is one audit-log line recording who changed what and when.
// Entries are never edited or removed; the list is kept newest-first.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Change    string    `json:"change"`
}

// =============================================================================
// Inspection Domain Type
// =============================================================================

// Inspection represents one tracked building-code complaint case.
type Inspection struct {
	ID       uuid.UUID `json:"id"`
	Protocol string    `json:"protocol"` // human-readable case number, assigned once

	Source InspectionSource `json:"source"`
	Type   InspectionType   `json:"type"`
	Status InspectionStatus `json:"status"`

	Description   string `json:"description"`             // initial complaint text
	Report        string `json:"report,omitempty"`        // investigator findings
	ReportSummary string `json:"reportSummary,omitempty"` // derived by the summarization service

	ComplainantName    string `json:"complainantName,omitempty"`
	ComplainantAddress string `json:"complainantAddress,omitempty"`
	ContactPhone       string `json:"contactPhone,omitempty"`
	RespondentName     string `json:"respondentName,omitempty"`
	Inspector          string `json:"inspector,omitempty"`

	Address        string   `json:"address"`
	ReferencePoint string   `json:"referencePoint,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`

	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	ComplaintDate string    `json:"complaintDate,omitempty"` // date-only, "2006-01-02"

	Photos              []Photo                 `json:"photos"`
	FollowUps           []FollowUp              `json:"followUps"`
	Actions             []InspectionAction      `json:"actions"`
	VerifiedInfractions map[InspectionType]bool `json:"verifiedInfractions"`
	Attachments         []Attachment            `json:"attachments"`
	History             []HistoryEntry          `json:"history"`
}

// HasLocation returns true if the case carries map coordinates.
func (i *Inspection) HasLocation() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// HasAction returns true if the given enforcement action is recorded.
func (i *Inspection) HasAction(a InspectionAction) bool {
	for _, v := range i.Actions {
		if v == a {
			return true
		}
	}
	return false
}

// VerifiedInfractionList returns the violation types confirmed by the
// inspector, in display order.
func (i *Inspection) VerifiedInfractionList() []InspectionType {
	var out []InspectionType
	for _, t := range AllTypes {
		if i.VerifiedInfractions[t] {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy. Callers of the repository receive clones so
// internal state is never aliased.
func (i *Inspection) Clone() *Inspection {
	c := *i
	if i.Latitude != nil {
		lat := *i.Latitude
		c.Latitude = &lat
	}
	if i.Longitude != nil {
		lng := *i.Longitude
		c.Longitude = &lng
	}
	c.Photos = append([]Photo(nil), i.Photos...)
	c.FollowUps = append([]FollowUp(nil), i.FollowUps...)
	c.Actions = append([]InspectionAction(nil), i.Actions...)
	c.Attachments = append([]Attachment(nil), i.Attachments...)
	c.History = append([]HistoryEntry(nil), i.History...)
	c.VerifiedInfractions = make(map[InspectionType]bool, len(i.VerifiedInfractions))
	for k, v := range i.VerifiedInfractions {
		c.VerifiedInfractions[k] = v
	}
	return &c
}

// =============================================================================
// Service Parameters
// =============================================================================

// CreateInspectionParams contains validated parameters for registering a case.
type CreateInspectionParams struct {
	Address            string
	Source             InspectionSource
	Type               InspectionType
	Description        string
	ComplainantName    string
	ComplainantAddress string
	ContactPhone       string
	RespondentName     string
	Inspector          string
	ReferencePoint     string
	ComplaintDate      string
	Latitude           *float64
	Longitude          *float64
	Attachments        []Attachment
}

// UpdateInspectionParams carries the editable fields of the detail view.
// Nil pointers mean "leave unchanged"; non-nil values are merged into the
// record and diffed against the prior values for history synthesis.
type UpdateInspectionParams struct {
	Status              *InspectionStatus
	Inspector           *string
	Report              *string
	ReportSummary       *string
	Actions             []InspectionAction      // nil = unchanged
	VerifiedInfractions map[InspectionType]bool // nil = unchanged
}

// AddPhotoParams contains the fields of a new evidence photo.
type AddPhotoParams struct {
	URL  string
	Name string
}

// AddFollowUpParams contains the fields of a new scheduled return visit.
type AddFollowUpParams struct {
	Date  string // date-only, "2006-01-02"
	Notes string
}
