package routing

import (
	"sort"

	"github.com/yanqian/rockwatch/internal/domain/risk"
)

// RecipientGroup is an audience for alerts.
type RecipientGroup string

const (
	GroupEmergency  RecipientGroup = "emergency"
	GroupManagement RecipientGroup = "management"
	GroupOperators  RecipientGroup = "operators"
)

var groupOrder = map[RecipientGroup]int{
	GroupEmergency:  0,
	GroupManagement: 1,
	GroupOperators:  2,
}

// Delivery channel names.
const (
	ChannelWebhook   = "webhook"
	ChannelNATS      = "nats"
	ChannelWebsocket = "websocket"
)

// Table maps each level to its recipients and channels.
type Table struct {
	Groups   map[risk.RiskLevel][]RecipientGroup
	Channels map[risk.RiskLevel][]string
}

// DefaultTable escalates recipients and channels with the level.
func DefaultTable() Table {
	return Table{
		Groups: map[risk.RiskLevel][]RecipientGroup{
			risk.LevelHigh:   {GroupEmergency, GroupManagement, GroupOperators},
			risk.LevelMedium: {GroupManagement, GroupOperators},
			risk.LevelLow:    {GroupOperators},
		},
		Channels: map[risk.RiskLevel][]string{
			risk.LevelHigh:   {ChannelWebhook, ChannelNATS, ChannelWebsocket},
			risk.LevelMedium: {ChannelWebhook, ChannelWebsocket},
			risk.LevelLow:    {ChannelWebsocket},
		},
	}
}

// Router is a pure lookup over a validated table.
type Router struct {
	groups   map[risk.RiskLevel][]RecipientGroup
	channels map[risk.RiskLevel][]string
}

// NewRouter validates table. Every level needs at least one known group.
func NewRouter(table Table) (*Router, error) {
	r := &Router{
		groups:   make(map[risk.RiskLevel][]RecipientGroup, len(risk.Levels)),
		channels: make(map[risk.RiskLevel][]string, len(risk.Levels)),
	}
	for _, level := range risk.Levels {
		groups := dedupeGroups(table.Groups[level])
		if len(groups) == 0 {
			return nil, risk.ConfigurationError("routing: level %s has no recipient groups", level)
		}
		for _, g := range groups {
			if _, ok := groupOrder[g]; !ok {
				return nil, risk.ConfigurationError("routing: unknown recipient group %q", g)
			}
		}
		r.groups[level] = groups
		r.channels[level] = dedupeStrings(table.Channels[level])
	}
	return r, nil
}

// Route returns the recipient groups for level, most senior first.
func (r *Router) Route(level risk.RiskLevel) []RecipientGroup {
	groups, ok := r.groups[level]
	if !ok {
		groups = r.groups[risk.LevelLow]
	}
	out := make([]RecipientGroup, len(groups))
	copy(out, groups)
	return out
}

// Channels returns the delivery channels for level.
func (r *Router) Channels(level risk.RiskLevel) []string {
	channels, ok := r.channels[level]
	if !ok {
		channels = r.channels[risk.LevelLow]
	}
	out := make([]string, len(channels))
	copy(out, channels)
	return out
}

func dedupeGroups(in []RecipientGroup) []RecipientGroup {
	seen := make(map[RecipientGroup]bool, len(in))
	out := make([]RecipientGroup, 0, len(in))
	for _, g := range in {
		if seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return groupOrder[out[i]] < groupOrder[out[j]] })
	return out
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
