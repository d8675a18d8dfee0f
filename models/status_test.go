package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartStatus_ScanAndValue(t *testing.T) {
	var s CartStatus
	require.NoError(t, s.Scan([]byte("suppressed")))
	assert.Equal(t, CartStatusSuppressed, s)

	v, err := CartStatusPurchased.Value()
	require.NoError(t, err)
	assert.Equal(t, "purchased", v)

	assert.Error(t, s.Scan("archived"))
	_, err = CartStatus(0).Value()
	assert.Error(t, err)
}

func TestSubscriberStatus_JSON(t *testing.T) {
	b, err := json.Marshal(SubscriberStatusUnsubscribed)
	require.NoError(t, err)
	assert.JSONEq(t, `"unsubscribed"`, string(b))

	var s SubscriberStatus
	require.NoError(t, json.Unmarshal([]byte(`"subscribed"`), &s))
	assert.Equal(t, SubscriberStatusSubscribed, s)
	assert.Error(t, json.Unmarshal([]byte(`"pending"`), &s))
}

func TestCartItems_RoundTripKeepsOrder(t *testing.T) {
	items := CartItems{
		{ID: "sku2", Quantity: 1, Price: 250},
		{ID: "sku1", Quantity: 2, Price: 500, DealID: "deal-1"},
	}
	v, err := items.Value()
	require.NoError(t, err)

	var back CartItems
	require.NoError(t, back.Scan([]byte(v.(string))))
	require.Len(t, back, 2)
	assert.Equal(t, "sku2", back[0].ID)
	assert.Equal(t, "deal-1", back[1].DealID)
	assert.Equal(t, int64(1250), back.Total())
}

func TestWeeklyDeal_InvalidReason(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	deal := WeeklyDeal{IsActive: true, StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	assert.Empty(t, deal.InvalidReason(now))

	ended := deal
	ended.EndsAt = now
	assert.Equal(t, "deal has ended", ended.InvalidReason(now))

	future := deal
	future.StartsAt = now.Add(time.Minute)
	assert.Equal(t, "deal has not started yet", future.InvalidReason(now))

	inactive := deal
	inactive.IsActive = false
	assert.Equal(t, "deal is no longer active", inactive.InvalidReason(now))
}

func TestAbandonedCart_Expired(t *testing.T) {
	now := time.Now()
	cart := AbandonedCart{ExpiresAt: now.Add(-time.Second)}
	assert.True(t, cart.Expired(now))
	cart.ExpiresAt = now.Add(time.Hour)
	assert.False(t, cart.Expired(now))
}
