package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docadmin-backend-go/internal/models"
)

func seedAuditTrail(t *testing.T, svc AuditService, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		entry := models.AuditEntry{
			UserID:     "u1",
			Action:     models.AuditActionUpdate,
			Collection: "products",
			DocumentID: "p1",
		}
		if i%2 == 0 {
			entry.Collection = "orders"
			entry.DocumentID = "o1"
		}
		require.NoError(t, svc.Record(context.Background(), entry))
	}
}

func TestAuditService_RecentIsNewestFirstAndClamped(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo)
	seedAuditTrail(t, svc, 60)

	entries, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, defaultAuditLimit, "a non-positive limit takes the default")

	entries, err = svc.Recent(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Len(t, entries, 60, "the cap never fabricates entries")

	assert.Equal(t, "audit-60", entries[0].ID, "newest first")
}

func TestAuditService_ScopedQueries(t *testing.T) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo)
	seedAuditTrail(t, svc, 10)

	entries, err := svc.ForCollection(context.Background(), "orders", 100)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, "orders", e.Collection)
	}

	entries, err = svc.ForDocument(context.Background(), "products", "p1", 100)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, "p1", e.DocumentID)
	}
}
