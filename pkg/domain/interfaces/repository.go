package interfaces

// Repository defines the interface for data persistence. Every method of
// every sub-repository is scoped by a workspace ID and never touches rows of
// another workspace.
type Repository interface {
	Risk() RiskRepository
	Treatment() TreatmentRepository
	Review() ReviewRepository
	Audit() AuditRepository

	Close() error
}
