package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"compliance_reminders/internal/domain/reminder"

	"github.com/redis/go-redis/v9"
)

// fakeCmdable implements only the commands the markers issue.
type fakeCmdable struct {
	redis.Cmdable

	existsKeys []string
	exists     int64
	existsErr  error

	setKey   string
	setValue interface{}
	setTTL   time.Duration
	setErr   error
}

func (f *fakeCmdable) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	f.existsKeys = keys
	return redis.NewIntResult(f.exists, f.existsErr)
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.setKey, f.setValue, f.setTTL = key, value, expiration
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	return redis.NewStatusResult("OK", nil)
}

func TestRedisPeriodMarkers_IsMarked(t *testing.T) {
	tests := []struct {
		name    string
		exists  int64
		err     error
		want    bool
		wantErr bool
	}{
		{name: "marked", exists: 1, want: true},
		{name: "not marked", exists: 0, want: false},
		{name: "redis error", err: errors.New("connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdb := &fakeCmdable{exists: tt.exists, existsErr: tt.err}
			markers := NewRedisPeriodMarkers(rdb)

			got, err := markers.IsMarked(context.Background(), reminder.ModuleTrainings, "2024-12-30")
			if (err != nil) != tt.wantErr {
				t.Fatalf("IsMarked() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, tt.err) {
				t.Errorf("error should wrap the redis error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("IsMarked() = %v, want %v", got, tt.want)
			}
			if len(rdb.existsKeys) != 1 || rdb.existsKeys[0] != "reminders:sent:trainings:2024-12-30" {
				t.Errorf("unexpected keys %v", rdb.existsKeys)
			}
		})
	}
}

func TestRedisPeriodMarkers_Mark(t *testing.T) {
	rdb := &fakeCmdable{}
	markers := NewRedisPeriodMarkers(rdb)

	if err := markers.Mark(context.Background(), reminder.ModuleDeadlines, "2025-01"); err != nil {
		t.Fatalf("Mark() error = %v", err)
	}
	if rdb.setKey != "reminders:sent:deadlines:2025-01" {
		t.Errorf("key = %s", rdb.setKey)
	}
	if rdb.setTTL != MarkerTTL {
		t.Errorf("ttl = %v, want %v", rdb.setTTL, MarkerTTL)
	}
	value, ok := rdb.setValue.(string)
	if !ok {
		t.Fatalf("value should be a timestamp string, got %T", rdb.setValue)
	}
	if _, err := time.Parse(time.RFC3339, value); err != nil {
		t.Errorf("value %q is not RFC3339: %v", value, err)
	}
}

func TestRedisPeriodMarkers_MarkError(t *testing.T) {
	cause := errors.New("READONLY You can't write against a read only replica")
	markers := NewRedisPeriodMarkers(&fakeCmdable{setErr: cause})

	err := markers.Mark(context.Background(), reminder.ModuleExaminations, "2024-12-30")
	if !errors.Is(err, cause) {
		t.Errorf("Mark() error = %v, want wrapped %v", err, cause)
	}
}
