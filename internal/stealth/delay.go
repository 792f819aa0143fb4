package stealth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// DelayProfile names a pacing preset for page fetches.
type DelayProfile string

const (
	ProfileOff        DelayProfile = "off"
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
)

var delayProfiles = map[DelayProfile][2]time.Duration{
	ProfileCautious:   {time.Second, 3 * time.Second},
	ProfileNormal:     {200 * time.Millisecond, 800 * time.Millisecond},
	ProfileAggressive: {50 * time.Millisecond, 200 * time.Millisecond},
}

// ParseDelayProfile validates a profile name; empty means off.
func ParseDelayProfile(s string) (DelayProfile, error) {
	p := DelayProfile(s)
	if p == "" || p == ProfileOff {
		return ProfileOff, nil
	}
	if _, ok := delayProfiles[p]; !ok {
		return "", fmt.Errorf("unknown delay profile %q", s)
	}
	return p, nil
}

// HumanDelay spreads requests over a random interval so a scan of thousands
// of ids does not arrive as a uniform burst. A nil *HumanDelay never waits.
type HumanDelay struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewHumanDelay returns nil for ProfileOff and the normal preset for any
// unknown name.
func NewHumanDelay(profile DelayProfile) *HumanDelay {
	if profile == "" || profile == ProfileOff {
		return nil
	}
	bounds, ok := delayProfiles[profile]
	if !ok {
		bounds = delayProfiles[ProfileNormal]
	}
	return &HumanDelay{MinDelay: bounds[0], MaxDelay: bounds[1]}
}

// Wait blocks for one random delay or until ctx is done.
func (h *HumanDelay) Wait(ctx context.Context) error {
	if h == nil {
		return nil
	}
	t := time.NewTimer(h.next())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *HumanDelay) next() time.Duration {
	span := h.MaxDelay - h.MinDelay
	if span <= 0 {
		return h.MinDelay
	}
	return h.MinDelay + rand.N(span)
}
