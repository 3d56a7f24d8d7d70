package store

import (
	"testing"
	"time"
)

func TestIsStale_SessionAge(t *testing.T) {
	maxAge := 30 * 24 * time.Hour
	margin := 5 * time.Minute
	created := int64(1_000_000)
	cred := &StoredCredential{Fields: map[string]string{"token": "x"}, CreatedAt: created}

	fresh := created + int64((29 * 24 * time.Hour).Seconds())
	if IsStale(cred, maxAge, margin, fresh) {
		t.Error("29 days old should be fresh with 30 day max age")
	}

	stale := created + int64((31 * 24 * time.Hour).Seconds())
	if !IsStale(cred, maxAge, margin, stale) {
		t.Error("31 days old should be stale with 30 day max age")
	}
}

func TestIsStale_ExpiresAt(t *testing.T) {
	margin := 5 * time.Minute
	expires := int64(10_000)
	cred := &StoredCredential{
		Fields:    map[string]string{"access_token": "x"},
		CreatedAt: 0,
		ExpiresAt: &expires,
	}

	if IsStale(cred, time.Hour, margin, expires-400) {
		t.Error("well before expiry should be fresh")
	}
	// 安全边际内即视为 stale
	if !IsStale(cred, time.Hour, margin, expires-100) {
		t.Error("inside the refresh margin should be stale")
	}
	if !IsStale(cred, time.Hour, margin, expires+1) {
		t.Error("past expiry should be stale")
	}
}

func TestIsStale_Monotonic(t *testing.T) {
	maxAge := 24 * time.Hour
	margin := 5 * time.Minute
	expires := int64(50_000)
	creds := []*StoredCredential{
		{Fields: map[string]string{}, CreatedAt: 0},
		{Fields: map[string]string{}, CreatedAt: 0, ExpiresAt: &expires},
	}
	for _, cred := range creds {
		wasStale := false
		for now := int64(0); now < 200_000; now += 1_000 {
			stale := IsStale(cred, maxAge, margin, now)
			if wasStale && !stale {
				t.Fatalf("staleness went backwards at now=%d", now)
			}
			wasStale = stale
		}
		if !wasStale {
			t.Error("credential never became stale")
		}
	}
}

func TestIsStale_NilCredential(t *testing.T) {
	if !IsStale(nil, time.Hour, time.Minute, 0) {
		t.Error("missing credential is always stale")
	}
}
