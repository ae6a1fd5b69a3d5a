package snapshot

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// NetworkInfo holds the metadata retention decisions are made on.
type NetworkInfo struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
}

// RetentionPolicy decides which saved networks to keep. Input is sorted
// newest-first.
type RetentionPolicy interface {
	Apply(networks []NetworkInfo) (keep []NetworkInfo)
}

// CountPolicy keeps the MaxCount most recent networks.
type CountPolicy struct {
	MaxCount int
}

// Apply keeps the first MaxCount networks.
func (p *CountPolicy) Apply(networks []NetworkInfo) []NetworkInfo {
	if len(networks) <= p.MaxCount {
		return networks
	}
	return networks[:max(p.MaxCount, 0)]
}

// AgePolicy keeps networks created within MaxAge of Now.
type AgePolicy struct {
	MaxAge time.Duration
	Now    func() time.Time // nil means time.Now
}

// Apply keeps networks whose CreatedAt is after the cutoff.
func (p *AgePolicy) Apply(networks []NetworkInfo) []NetworkInfo {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().Add(-p.MaxAge)
	var keep []NetworkInfo
	for _, n := range networks {
		if n.CreatedAt.After(cutoff) {
			keep = append(keep, n)
		}
	}
	return keep
}

// EdgeBudgetPolicy keeps networks, newest first, until their combined edge
// count would exceed MaxEdges. The newest network is always kept.
type EdgeBudgetPolicy struct {
	MaxEdges int
}

// Apply keeps networks while the running edge total fits the budget.
func (p *EdgeBudgetPolicy) Apply(networks []NetworkInfo) []NetworkInfo {
	var keep []NetworkInfo
	total := 0
	for _, n := range networks {
		if total+n.Edges > p.MaxEdges && len(keep) > 0 {
			break
		}
		keep = append(keep, n)
		total += n.Edges
	}
	return keep
}

// CompositePolicy keeps a network if any sub-policy keeps it.
type CompositePolicy struct {
	Policies []RetentionPolicy
}

// Apply returns the union of the sub-policies, in input order.
func (p *CompositePolicy) Apply(networks []NetworkInfo) []NetworkInfo {
	kept := make(map[string]bool)
	for _, policy := range p.Policies {
		for _, n := range policy.Apply(networks) {
			kept[n.ID] = true
		}
	}
	var result []NetworkInfo
	for _, n := range networks {
		if kept[n.ID] {
			result = append(result, n)
		}
	}
	return result
}

// Pruner is implemented by stores that keep more than one network.
type Pruner interface {
	ListNetworks(ctx context.Context) ([]NetworkInfo, error)
	Prune(ctx context.Context, policy RetentionPolicy) (deleted []string, err error)
}

// ParseDuration parses durations like "30d", "2w" or anything
// time.ParseDuration accepts.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	num, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	switch s[len(s)-1] {
	case 'd':
		return time.Duration(num) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(num) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration suffix %q in %q", s[len(s)-1:], s)
	}
}
