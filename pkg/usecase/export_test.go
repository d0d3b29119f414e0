package usecase

// BuildAssignmentMessage is exported for testing
var BuildAssignmentMessage = buildAssignmentMessage
