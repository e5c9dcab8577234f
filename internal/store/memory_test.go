package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/sentinel"
)

func TestCreateAssignsIDAndDelivers(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var snapshots [][]Document
	unsubscribe := s.Subscribe(CollectionRegistrations, Query{}, func(docs []Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	defer unsubscribe()

	require.Len(t, snapshots, 1, "initial snapshot expected on subscribe")
	assert.Empty(t, snapshots[0])

	id, err := s.Create(ctx, CollectionRegistrations, Document{"name": "Jane"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[1], 1)
	assert.Equal(t, id, snapshots[1][0]["id"])
	assert.Equal(t, "Jane", snapshots[1][0]["name"])
}

func TestGetOnceFiltersByEquality(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.Seed(CollectionRegistrations,
		Document{"id": "r1", "email": "a@x.com"},
		Document{"id": "r2", "email": "b@x.com"},
	)

	docs, err := s.GetOnce(ctx, CollectionRegistrations, Query{}.Where("email", "a@x.com"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "r1", docs[0]["id"])
}

func TestGetOnceOrdersDescending(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	older := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	s.Seed(CollectionOrders,
		Document{"id": "o1", "createdAt": older},
		Document{"id": "o2", "createdAt": newer},
	)

	docs, err := s.GetOnce(ctx, CollectionOrders, Query{}.OrderedBy("createdAt", true))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "o2", docs[0]["id"], "newest first")
}

func TestUpdateMergesPatch(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.Seed(CollectionRegistrations, Document{"id": "r1", "seats": 1, "name": "Jane"})

	require.NoError(t, s.Update(ctx, CollectionRegistrations, "r1", Document{"seats": 3}))

	docs, err := s.GetOnce(ctx, CollectionRegistrations, Query{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0]["seats"])
	assert.Equal(t, "Jane", docs[0]["name"], "unpatched fields survive")
}

func TestUpdateMissingDocumentReturnsNotFound(t *testing.T) {
	s := NewMemory()

	err := s.Update(context.Background(), CollectionRegistrations, "ghost", Document{"seats": 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDeleteRemovesAndNotifies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.Seed(CollectionRegistrations, Document{"id": "r1"}, Document{"id": "r2"})

	var last []Document
	unsubscribe := s.Subscribe(CollectionRegistrations, Query{}, func(docs []Document) {
		last = docs
	}, nil)
	defer unsubscribe()

	require.NoError(t, s.Delete(ctx, CollectionRegistrations, "r1"))
	require.Len(t, last, 1)
	assert.Equal(t, "r2", last[0]["id"])

	err := s.Delete(ctx, CollectionRegistrations, "r1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	count := 0
	unsubscribe := s.Subscribe(CollectionOrders, Query{}, func([]Document) { count++ }, nil)
	require.Equal(t, 1, count)

	unsubscribe()

	_, err := s.Create(ctx, CollectionOrders, Document{"orderNumber": "CMD-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "no delivery after unsubscribe")
}

func TestOutageAndReconnect(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.Seed(CollectionOrders, Document{"id": "o1"})

	snapshots := 0
	errors := 0
	unsubscribe := s.Subscribe(CollectionOrders, Query{},
		func([]Document) { snapshots++ },
		func(error) { errors++ },
	)
	defer unsubscribe()
	require.Equal(t, 1, snapshots)

	s.SimulateOutage()
	assert.Equal(t, 1, errors)

	_, err := s.GetOnce(ctx, CollectionOrders, Query{})
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	_, err = s.Create(ctx, CollectionOrders, Document{})
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)

	s.Reconnect()
	assert.Equal(t, 2, snapshots, "fresh snapshot on reconnect")
}

func TestSnapshotsAreDeepCopies(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	s.Seed(CollectionOrders, Document{
		"id":    "o1",
		"items": []any{Document{"productName": "Mug", "quantity": 2}},
	})

	docs, err := s.GetOnce(ctx, CollectionOrders, Query{})
	require.NoError(t, err)
	items := docs[0]["items"].([]any)
	items[0].(Document)["quantity"] = 99

	again, err := s.GetOnce(ctx, CollectionOrders, Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, again[0]["items"].([]any)[0].(Document)["quantity"])
}
