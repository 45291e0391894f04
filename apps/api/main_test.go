package main

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/session"
	"github.com/trezcool/schulportal/storage/inmem"
)

func TestSweepSessions(t *testing.T) {
	sessions := session.NewService(
		inmem.NewSessionRepository(),
		func(string, core.Admin) *session.Session { return &session.Session{} },
		time.Nanosecond,
		core.NopLogger{},
	)
	_, err := sessions.Open("token", core.Admin{ID: "admin-1"})
	require.NoError(t, err)
	require.Equal(t, 1, sessions.Count())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk := clock.NewMock()
	conf := core.SessionConfig{IdleTTL: time.Nanosecond, SweepInterval: time.Minute}
	go sweepSessions(ctx, clk, sessions, conf, core.NopLogger{})

	require.Eventually(t, func() bool {
		clk.Add(time.Minute)
		return sessions.Count() == 0
	}, time.Second, 10*time.Millisecond)
}
