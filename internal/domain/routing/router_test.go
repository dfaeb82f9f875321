package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/rockwatch/internal/domain/risk"
)

func TestRouteDefaultTable(t *testing.T) {
	r, err := NewRouter(DefaultTable())
	require.NoError(t, err)

	require.Equal(t, []RecipientGroup{GroupEmergency, GroupManagement, GroupOperators}, r.Route(risk.LevelHigh))
	require.Equal(t, []RecipientGroup{GroupManagement, GroupOperators}, r.Route(risk.LevelMedium))
	require.Equal(t, []RecipientGroup{GroupOperators}, r.Route(risk.LevelLow))
	require.Equal(t, []string{ChannelWebhook, ChannelNATS, ChannelWebsocket}, r.Channels(risk.LevelHigh))
	require.Equal(t, []string{ChannelWebsocket}, r.Channels(risk.LevelLow))
}

func TestRouteReturnsCopies(t *testing.T) {
	r, err := NewRouter(DefaultTable())
	require.NoError(t, err)
	groups := r.Route(risk.LevelHigh)
	groups[0] = "mutated"
	require.Equal(t, GroupEmergency, r.Route(risk.LevelHigh)[0])
}

func TestNewRouterNormalizesAndValidates(t *testing.T) {
	table := DefaultTable()
	table.Groups[risk.LevelMedium] = []RecipientGroup{GroupOperators, GroupManagement, GroupOperators}
	r, err := NewRouter(table)
	require.NoError(t, err)
	require.Equal(t, []RecipientGroup{GroupManagement, GroupOperators}, r.Route(risk.LevelMedium))

	table = DefaultTable()
	delete(table.Groups, risk.LevelLow)
	_, err = NewRouter(table)
	require.True(t, risk.IsConfigurationError(err))

	table = DefaultTable()
	table.Groups[risk.LevelHigh] = []RecipientGroup{"contractors"}
	_, err = NewRouter(table)
	require.True(t, risk.IsConfigurationError(err))
}
