package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// Client: клиент KitchenService поверх произвольного соединения.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient оборачивает соединение.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// ListTables возвращает столы.
func (c *Client) ListTables(ctx context.Context) ([]domain.Table, error) {
	var out struct {
		Tables []domain.Table `json:"tables"`
	}
	if err := c.call(ctx, MethodListTables, "", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

// ListActiveOrders возвращает заказы в работе и счётчики.
func (c *Client) ListActiveOrders(ctx context.Context) ([]domain.Order, domain.OrderStats, error) {
	var out struct {
		Orders []domain.Order    `json:"orders"`
		Stats  domain.OrderStats `json:"stats"`
	}
	if err := c.call(ctx, MethodListActiveOrders, "", struct{}{}, &out); err != nil {
		return nil, domain.OrderStats{}, err
	}
	return out.Orders, out.Stats, nil
}

// AddOrderToTable ставит заказ столу. Пустой idemKey отключает дедупликацию.
func (c *Client) AddOrderToTable(ctx context.Context, idemKey, tableID string, items ...domain.OrderItem) (domain.Order, error) {
	var order domain.Order
	err := c.call(ctx, MethodAddOrderToTable, idemKey, addOrderRequest{TableID: tableID, Items: items}, &order)
	return order, err
}

// UpdateOrderStatus меняет статус заказа.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, next domain.OrderStatus) (domain.Order, error) {
	var order domain.Order
	err := c.call(ctx, MethodUpdateOrderStatus, "", updateStatusRequest{OrderID: orderID, Status: next}, &order)
	return order, err
}

// FinalizePayment закрывает счёт стола.
func (c *Client) FinalizePayment(ctx context.Context, idemKey, tableID string) (domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	err := c.call(ctx, MethodFinalizePayment, idemKey, tableRequest{TableID: tableID}, &entry)
	return entry, err
}

func (c *Client) call(ctx context.Context, method, idemKey string, in, out any) error {
	req, err := encodeStruct(in)
	if err != nil {
		return err
	}
	if idemKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, IdempotencyKeyHeader, idemKey)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return err
	}
	if err := decodeStruct(resp, out); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}
