package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/dicebox/internal/app/game"
	"github.com/osa030/dicebox/internal/app/notification"
	"github.com/osa030/dicebox/internal/app/playback/playbacktest"
	"github.com/osa030/dicebox/internal/infra/config"
)

const testToken = "secret"

type testServer struct {
	game   *game.Manager
	loader *playbacktest.Loader
	url    string
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ControlToken = token
	cfg.Game.Positions = 4
	cfg.Game.Labels = []string{"a", "b", "c"}
	cfg.Game.Enabled = []string{"a", "b"}
	cfg.Game.Seed = 9

	loader := playbacktest.NewLoader()
	mgr, err := game.NewManager(cfg, loader)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(context.Background()))

	var opts []connect.HandlerOption
	if cfg.IsControlProtected() {
		opts = append(opts, connect.WithInterceptors(NewControlTokenInterceptor(cfg.Server.ControlToken)))
	}
	path, handler := NewHandler(NewGameService(mgr), opts...)
	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		mgr.Close()
		srv.Close()
	})
	return &testServer{game: mgr, loader: loader, url: srv.URL}
}

func TestGameService_GetStatus(t *testing.T) {
	ts := newTestServer(t, testToken)
	c := NewClient(http.DefaultClient, ts.url, "")

	res, err := c.GetStatus(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Status.Selection, 4)
	assert.Equal(t, []string{"a", "b"}, res.Status.Enabled)
	assert.Equal(t, "Play Minuetto", res.Status.PlayLabel)
	assert.Equal(t, "idle", res.Status.State)
	assert.Len(t, res.Status.Pieces, 3)
}

func TestGameService_ControlToken(t *testing.T) {
	ts := newTestServer(t, testToken)
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		code  connect.Code
	}{
		{name: "missing", token: "", code: connect.CodeUnauthenticated},
		{name: "wrong", token: "guess", code: connect.CodeUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(http.DefaultClient, ts.url, tt.token)

			_, err := c.Randomise(ctx)
			assert.Equal(t, tt.code, connect.CodeOf(err))
			_, err = c.TogglePlay(ctx)
			assert.Equal(t, tt.code, connect.CodeOf(err))
			_, err = c.PlayCell(ctx, "a01")
			assert.Equal(t, tt.code, connect.CodeOf(err))
			_, err = c.PlayPiece(ctx, "a")
			assert.Equal(t, tt.code, connect.CodeOf(err))
			_, err = c.SetGroups(ctx, []string{"a"})
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}

	c := NewClient(http.DefaultClient, ts.url, testToken)
	res, err := c.Randomise(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Selection, 4)
}

func TestGameService_Unprotected(t *testing.T) {
	ts := newTestServer(t, "")
	c := NewClient(http.DefaultClient, ts.url, "")

	res, err := c.TogglePlay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Stop Minuetto", res.PlayLabel)
	assert.Equal(t, "playing", res.State)

	res, err = c.TogglePlay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Play Minuetto", res.PlayLabel)
	assert.Equal(t, "idle", res.State)
}

func TestGameService_ErrorCodes(t *testing.T) {
	ts := newTestServer(t, testToken)
	c := NewClient(http.DefaultClient, ts.url, testToken)
	ctx := context.Background()

	_, err := c.PlayCell(ctx, "c01")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.PlayPiece(ctx, "z")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.SetGroups(ctx, []string{"x"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	groups, err := c.SetGroups(ctx, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, groups.Enabled)
	assert.Equal(t, []string{"c01", "c02", "c03", "c04"}, groups.Selection)

	_, err = c.Randomise(ctx)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = c.SetGroups(ctx, nil)
	require.NoError(t, err)
	_, err = c.TogglePlay(ctx)
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
}

func TestGameService_PlayCellAndPiece(t *testing.T) {
	ts := newTestServer(t, testToken)
	c := NewClient(http.DefaultClient, ts.url, testToken)
	ctx := context.Background()

	cell, err := c.PlayCell(ctx, "b02")
	require.NoError(t, err)
	assert.True(t, cell.Playing)

	p, err := c.PlayPiece(ctx, "c")
	require.NoError(t, err)
	assert.True(t, p.Playing)

	s, ok := ts.loader.Playing()
	require.True(t, ok)
	assert.Equal(t, "full/minuettoC.mp3", s.Path())

	p, err = c.PlayPiece(ctx, "c")
	require.NoError(t, err)
	assert.False(t, p.Playing)
}

func TestGameService_Subscribe(t *testing.T) {
	ts := newTestServer(t, testToken)
	c := NewClient(http.DefaultClient, ts.url, testToken)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := c.Subscribe(ctx)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	initial := stream.Msg()
	assert.Equal(t, notification.TypeInitialState, initial.Type)
	require.NotNil(t, initial.Status)
	assert.Len(t, initial.Status.Selection, 4)

	assert.Eventually(t, func() bool {
		return ts.game.GetNotificationManager().SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	res, err := c.Randomise(ctx)
	require.NoError(t, err)

	for stream.Receive() {
		ev := stream.Msg()
		if ev.Type != notification.TypeSelection {
			continue
		}
		assert.Equal(t, res.Selection, ev.Selection)
		assert.Greater(t, ev.SequenceNo, initial.SequenceNo)
		assert.Nil(t, ev.Status)
		return
	}
	t.Fatalf("selection event not received: %v", stream.Err())
}
