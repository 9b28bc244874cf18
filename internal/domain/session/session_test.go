package session

import (
	"testing"
	"time"
)

func TestRecordValid(t *testing.T) {
	now := time.Now().UTC()
	tests := []struct {
		name   string
		record *Record
		want   bool
	}{
		{
			name: "complete record",
			record: &Record{
				Token:        "tok-1",
				User:         User{ID: "u1", Role: RoleSeller},
				LoginTime:    now,
				LastActivity: now,
				ExpiresIn:    DefaultMaxLifetime,
			},
			want: true,
		},
		{
			name: "missing token",
			record: &Record{
				User:         User{ID: "u1"},
				LoginTime:    now,
				LastActivity: now,
			},
			want: false,
		},
		{
			name: "missing user",
			record: &Record{
				Token:        "tok-1",
				LoginTime:    now,
				LastActivity: now,
			},
			want: false,
		},
		{
			name: "missing login time",
			record: &Record{
				Token: "tok-1",
				User:  User{ID: "u1"},
			},
			want: false,
		},
		{
			name:   "nil record",
			record: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordExpiry(t *testing.T) {
	login := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastActivity time.Time
		now          time.Time
		wantAbsolute bool
		wantInactive bool
	}{
		{
			name:         "fresh session",
			lastActivity: login,
			now:          login.Add(time.Minute),
			wantAbsolute: false,
			wantInactive: false,
		},
		{
			name:         "nine minutes idle",
			lastActivity: login,
			now:          login.Add(9 * time.Minute),
			wantAbsolute: false,
			wantInactive: false,
		},
		{
			name:         "eleven minutes idle",
			lastActivity: login,
			now:          login.Add(11 * time.Minute),
			wantAbsolute: false,
			wantInactive: true,
		},
		{
			name:         "absolute cap wins over recent activity",
			lastActivity: login.Add(8 * time.Hour),
			now:          login.Add(8*time.Hour + time.Minute),
			wantAbsolute: true,
			wantInactive: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Record{
				Token:        "tok",
				User:         User{ID: "u1"},
				LoginTime:    login,
				LastActivity: tt.lastActivity,
				ExpiresIn:    DefaultMaxLifetime,
			}
			if got := r.ExpiredAbsolute(tt.now, DefaultMaxLifetime); got != tt.wantAbsolute {
				t.Errorf("ExpiredAbsolute() = %v, want %v", got, tt.wantAbsolute)
			}
			if got := r.ExpiredInactive(tt.now, DefaultInactivityTimeout); got != tt.wantInactive {
				t.Errorf("ExpiredInactive() = %v, want %v", got, tt.wantInactive)
			}
		})
	}
}

func TestRecordExpiryBoundary(t *testing.T) {
	// Strict inequality: now - loginTime must exceed the cap.
	login := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r := &Record{
		Token:        "tok",
		User:         User{ID: "u1"},
		LoginTime:    login,
		LastActivity: login,
		ExpiresIn:    DefaultMaxLifetime,
	}
	if r.ExpiredAbsolute(login.Add(DefaultMaxLifetime), DefaultMaxLifetime) {
		t.Error("ExpiredAbsolute() at exact boundary = true, want false")
	}
	if r.ExpiredInactive(login.Add(DefaultInactivityTimeout), DefaultInactivityTimeout) {
		t.Error("ExpiredInactive() at exact boundary = true, want false")
	}
}

func TestRecordRemaining(t *testing.T) {
	login := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	r := &Record{
		Token:        "tok",
		User:         User{ID: "u1"},
		LoginTime:    login,
		LastActivity: login.Add(time.Hour),
		ExpiresIn:    DefaultMaxLifetime,
	}

	got := r.Remaining(login.Add(time.Hour + 30*time.Minute))
	want := DefaultMaxLifetime - 30*time.Minute
	if got != want {
		t.Errorf("Remaining() = %v, want %v", got, want)
	}
}

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some-opaque-token")
	if len(fp) != 16 {
		t.Errorf("Fingerprint() len = %d, want 16", len(fp))
	}
	if fp == Fingerprint("another-token") {
		t.Error("Fingerprint() collided for distinct tokens")
	}
	if Fingerprint("some-opaque-token") != fp {
		t.Error("Fingerprint() not stable")
	}
	if Fingerprint("") != "" {
		t.Error("Fingerprint(\"\") should be empty")
	}
}
