package worker

// BuildDigestMessage is exported for testing
var BuildDigestMessage = buildDigestMessage

const MaxDigestItems = maxDigestItems
