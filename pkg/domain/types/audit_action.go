package types

// AuditAction names a recorded mutation
type AuditAction string

const (
	AuditActionRiskCreated       AuditAction = "risk.created"
	AuditActionRiskUpdated       AuditAction = "risk.updated"
	AuditActionRiskDeleted       AuditAction = "risk.deleted"
	AuditActionTreatmentAdded    AuditAction = "treatment.added"
	AuditActionTreatmentUpdated  AuditAction = "treatment.status_updated"
	AuditActionTreatmentRemoved  AuditAction = "treatment.removed"
	AuditActionReviewRecorded    AuditAction = "review.recorded"
	AuditActionReviewApplied     AuditAction = "review.applied"
	AuditActionResponsibleChange AuditAction = "risk.responsible_changed"
)

// EntityType names the kind of entity an audit entry refers to
type EntityType string

const (
	EntityTypeRisk      EntityType = "risk"
	EntityTypeTreatment EntityType = "risk_treatment"
	EntityTypeReview    EntityType = "risk_review"
)

func (a AuditAction) String() string { return string(a) }
func (e EntityType) String() string  { return string(e) }
