package refetch

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"chainwatch/staleness"
	"chainwatch/timelock"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func resolverKey() staleness.EntityKey {
	return staleness.NewEntityKey("evm", common.HexToAddress("0x00000000000000000000000000000000000000bb"))
}

func TestComputeIntervalCountdownLayers(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	resolver := NewResolver(nil, WithLayers(TimelockLayers()...), withResolverClock(fixedClock(now)))
	key := resolverKey()

	cases := []struct {
		name   string
		status *timelock.Status
		want   time.Duration
		wantOK bool
	}{
		{
			name: "effect time passed",
			status: &timelock.Status{
				PendingDelay: &timelock.PendingDelayChange{EffectAt: now.Add(-time.Minute)},
			},
			want:   ConfirmInterval,
			wantOK: true,
		},
		{
			name: "effect within two minutes",
			status: &timelock.Status{
				PendingDelay: &timelock.PendingDelayChange{EffectAt: now.Add(90 * time.Second)},
			},
			want:   NearInterval,
			wantOK: true,
		},
		{
			name: "effect further out",
			status: &timelock.Status{
				PendingDelay: &timelock.PendingDelayChange{EffectAt: now.Add(time.Hour)},
			},
			want:   FarInterval,
			wantOK: true,
		},
		{
			name: "pending admin transfer with timestamps",
			status: &timelock.Status{
				TimestampSchedule: true,
				PendingAdmin: &timelock.PendingAdminTransfer{
					NewAdmin:   common.HexToAddress("0x01"),
					Expiration: now.Add(30 * time.Second),
				},
			},
			want:   NearInterval,
			wantOK: true,
		},
		{
			name: "block-number admin schedule is not countable",
			status: &timelock.Status{
				TimestampSchedule: false,
				PendingAdmin:      &timelock.PendingAdminTransfer{EffectBlock: 120},
			},
			wantOK: false,
		},
		{
			name:   "no pending change",
			status: &timelock.Status{},
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := resolver.ComputeInterval(key, "status", tc.status, now)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got != tc.want {
				t.Fatalf("interval = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestComputeIntervalLayerOrder(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	resolver := NewResolver(nil, WithLayers(TimelockLayers()...), withResolverClock(fixedClock(now)))

	// Both layers apply; delay change is evaluated first and wins.
	status := &timelock.Status{
		TimestampSchedule: true,
		PendingDelay:      &timelock.PendingDelayChange{EffectAt: now.Add(time.Hour)},
		PendingAdmin:      &timelock.PendingAdminTransfer{Expiration: now.Add(-time.Minute)},
	}
	got, ok := resolver.ComputeInterval(resolverKey(), "status", status, now)
	if !ok || got != FarInterval {
		t.Fatalf("expected delay-change layer to win with %v, got (%v,%v)", FarInterval, got, ok)
	}
}

func TestComputeIntervalPostMutationOverridesCountdown(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	reg := staleness.NewRegistry()
	resolver := NewResolver(reg, WithLayers(TimelockLayers()...), withResolverClock(fixedClock(now)))
	key := resolverKey()

	reg.RecordMutation(key, nil)

	// Even with a far-out countdown, the post-mutation signal wins.
	status := &timelock.Status{
		PendingDelay: &timelock.PendingDelayChange{EffectAt: now.Add(time.Hour)},
	}
	got, ok := resolver.ComputeInterval(key, "status", status, now.Add(-time.Second))
	if !ok || got != staleness.DefaultPollInterval {
		t.Fatalf("expected post-mutation interval %v, got (%v,%v)", staleness.DefaultPollInterval, got, ok)
	}
}
