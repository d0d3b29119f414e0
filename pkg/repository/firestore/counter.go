package firestore

import (
	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	riskCounter      = "risk"
	treatmentCounter = "treatment"
)

// nextID increments the counter document inside tx and returns the new value.
// It must run before any write in the transaction.
func nextID(tx *firestore.Transaction, counterRef *firestore.DocumentRef) (int64, error) {
	doc, err := tx.Get(counterRef)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 1, nil
		}
		return 0, goerr.Wrap(err, "failed to get counter", goerr.V("counter", counterRef.Path))
	}

	currentValue, err := doc.DataAt("value")
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get counter value")
	}

	val, ok := currentValue.(int64)
	if !ok {
		return 0, goerr.New("counter value is not of type int64", goerr.V("value", currentValue))
	}
	return val + 1, nil
}

func storeCounter(tx *firestore.Transaction, counterRef *firestore.DocumentRef, value int64) error {
	return tx.Set(counterRef, map[string]interface{}{
		"value": value,
	})
}
