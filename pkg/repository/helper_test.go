package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/repository/firestore"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/repository/postgres"
)

// newWorkspaceID returns a workspace ID unique to the running test so that
// shared databases do not see rows of earlier runs
func newWorkspaceID() string {
	return fmt.Sprintf("ws-%d", time.Now().UnixNano())
}

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	ctx := context.Background()
	prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	_, err := postgres.Migrate(dsn)
	gt.NoError(t, err).Required()

	repo, err := postgres.New(context.Background(), dsn)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close postgres repository: %v", err)
		}
	})
	return repo
}

var backends = []struct {
	name    string
	newRepo func(t *testing.T) interfaces.Repository
}{
	{"Memory", newMemoryRepository},
	{"Firestore", newFirestoreRepository},
	{"Postgres", newPostgresRepository},
}
