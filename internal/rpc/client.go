package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annel0/mmo-worldgen/internal/worldgen"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client вызывает WorldTemplateService
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial подключается к серверу без TLS
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("подключение к %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient оборачивает готовое соединение; Close его не закрывает
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close закрывает соединение, открытое через Dial
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// GetTemplate запрашивает шаблон по seed
func (c *Client) GetTemplate(ctx context.Context, seed int64) (*worldgen.WorldTemplate, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodGetTemplate, wrapperspb.Int64(seed), out); err != nil {
		return nil, err
	}
	tpl := &worldgen.WorldTemplate{}
	if err := fromStruct(out, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// GetLevel запрашивает срез шаблона по уровню
func (c *Client) GetLevel(ctx context.Context, seed int64, level int) (worldgen.LevelView, error) {
	var view worldgen.LevelView
	err := c.invokeStruct(ctx, MethodGetLevel, map[string]interface{}{
		"seed":  seed,
		"level": level,
	}, &view)
	return view, err
}

// GetCamp запрашивает срез шаблона по лагерю
func (c *Client) GetCamp(ctx context.Context, seed int64, ordinal int) (worldgen.CampView, error) {
	var view worldgen.CampView
	err := c.invokeStruct(ctx, MethodGetCamp, map[string]interface{}{
		"seed":    seed,
		"ordinal": ordinal,
	}, &view)
	return view, err
}

func (c *Client) invokeStruct(ctx context.Context, method string, fields map[string]interface{}, dst interface{}) error {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return fmt.Errorf("формирование запроса: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return fromStruct(out, dst)
}

func fromStruct(s *structpb.Struct, dst interface{}) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("разбор ответа: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("разбор ответа: %w", err)
	}
	return nil
}
