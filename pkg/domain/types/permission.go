package types

// Resource names a kind of object a policy decision is made about
type Resource string

const (
	ResourceRisk Resource = "risk"
)

// Operation is the capability requested on a resource
type Operation string

const (
	OperationRead   Operation = "read"
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

func (r Resource) String() string  { return string(r) }
func (o Operation) String() string { return string(o) }
