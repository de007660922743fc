package rpc

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/annel0/mmo-worldgen/internal/storage"
	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"github.com/annel0/mmo-worldgen/internal/worldgen/sampler"
	"github.com/annel0/mmo-worldgen/internal/worldservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	codec, err := storage.NewCodec(false)
	require.NoError(t, err)
	t.Cleanup(codec.Close)

	svc, err := worldservice.New(nil, storage.NewMemoryTemplateRepo(codec))
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	gs := NewGRPCServer(svc)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestGetTemplate(t *testing.T) {
	client := newTestClient(t)

	got, err := client.GetTemplate(context.Background(), 42)
	require.NoError(t, err)

	want := worldgen.NewWorldTemplate(42, nil)
	require.NoError(t, worldgen.NewGenerator(nil).PrepareWorld(42, want))

	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON), "шаблон по gRPC совпадает с локальной генерацией")
}

func TestGetLevelAndCamp(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	level, err := client.GetLevel(ctx, 42, 13)
	require.NoError(t, err)
	assert.Equal(t, 13, level.Level)
	require.Len(t, level.Camps, 1)
	assert.Equal(t, 0, level.Camps[0].X)

	camp, err := client.GetCamp(ctx, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, camp.CampOrdinal)
	assert.Len(t, camp.Stages, 2)
}

func TestErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetLevel(ctx, 42, 99)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.GetCamp(ctx, 42, 0)
	assert.Equal(t, codes.NotFound, status.Code(err))

	// запрос без обязательного поля
	out := new(structpb.Struct)
	in, err := structpb.NewStruct(map[string]interface{}{"seed": 42})
	require.NoError(t, err)
	err = client.cc.Invoke(ctx, MethodGetLevel, in, out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	in, err = structpb.NewStruct(map[string]interface{}{"seed": 42, "level": 13.5})
	require.NoError(t, err)
	err = client.cc.Invoke(ctx, MethodGetLevel, in, out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	in, err = structpb.NewStruct(map[string]interface{}{"seed": "42", "level": 13})
	require.NoError(t, err)
	err = client.cc.Invoke(ctx, MethodGetLevel, in, out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.NotFound, status.Code(toStatus(storage.ErrTemplateNotFound)))
	assert.Equal(t, codes.Canceled, status.Code(toStatus(context.Canceled)))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(toStatus(context.DeadlineExceeded)))
	assert.Equal(t, codes.FailedPrecondition, status.Code(toStatus(&sampler.ExhaustedError{Label: "camp pos"})))
	assert.Equal(t, codes.Internal, status.Code(toStatus(assert.AnError)))
}
