package grpcapi

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/kitchen"
)

// ReplayObserver учитывает исходы повторных вызовов с тем же idempotency-key.
type ReplayObserver interface {
	ObserveReplay(method, outcome string)
}

// KitchenService отдаёт столы и заказы кухонному экрану.
type KitchenService struct {
	admin    *kitchen.Admin
	idemRepo domain.IdempotencyRepository
	replays  ReplayObserver
	logger   *log.Entry
}

var _ KitchenServer = (*KitchenService)(nil)

// Option настраивает KitchenService.
type Option func(*KitchenService)

// WithIdempotency включает кэширование ответов AddOrderToTable и FinalizePayment.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(s *KitchenService) { s.idemRepo = repo }
}

// WithReplayObserver подключает метрики повторов.
func WithReplayObserver(observer ReplayObserver) Option {
	return func(s *KitchenService) { s.replays = observer }
}

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(s *KitchenService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewKitchenService конструирует сервис.
func NewKitchenService(admin *kitchen.Admin, opts ...Option) *KitchenService {
	s := &KitchenService{
		admin:  admin,
		logger: log.WithField("component", "kitchen-grpc"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type addOrderRequest struct {
	TableID string             `json:"table_id"`
	Items   []domain.OrderItem `json:"items"`
}

type updateStatusRequest struct {
	OrderID string             `json:"order_id"`
	Status  domain.OrderStatus `json:"status"`
}

type tableRequest struct {
	TableID string `json:"table_id"`
}

// ListTables возвращает столы в порядке создания.
func (s *KitchenService) ListTables(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encodeResponse(map[string]any{"tables": s.admin.Tables()})
}

// ListActiveOrders возвращает заказы в работе и счётчики.
func (s *KitchenService) ListActiveOrders(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return encodeResponse(map[string]any{
		"orders": s.admin.ActiveOrders(),
		"stats":  s.admin.OrderStats(),
	})
}

// AddOrderToTable ставит заказ столу. Без items: демонстрационное комбо.
func (s *KitchenService) AddOrderToTable(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.withIdempotency(ctx, MethodAddOrderToTable, req, func(ctx context.Context) (*structpb.Struct, error) {
		var in addOrderRequest
		if err := decodeRequest(req, &in); err != nil {
			return nil, err
		}
		tableID := strings.TrimSpace(in.TableID)
		if tableID == "" {
			return nil, status.Error(codes.InvalidArgument, "table_id is required")
		}

		order, found, err := s.admin.AddOrderToTable(ctx, tableID, in.Items...)
		if err := s.statusFor(MethodAddOrderToTable, "table", tableID, found, err); err != nil {
			return nil, err
		}
		return encodeResponse(order)
	})
}

// UpdateOrderStatus переводит заказ на соседний статус.
func (s *KitchenService) UpdateOrderStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in updateStatusRequest
	if err := decodeRequest(req, &in); err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return nil, status.Error(codes.InvalidArgument, "order_id is required")
	}

	order, found, err := s.admin.UpdateOrderStatus(ctx, orderID, in.Status)
	if err := s.statusFor(MethodUpdateOrderStatus, "order", orderID, found, err); err != nil {
		return nil, err
	}
	return encodeResponse(order)
}

// FinalizePayment закрывает счёт стола.
func (s *KitchenService) FinalizePayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.withIdempotency(ctx, MethodFinalizePayment, req, func(ctx context.Context) (*structpb.Struct, error) {
		var in tableRequest
		if err := decodeRequest(req, &in); err != nil {
			return nil, err
		}
		tableID := strings.TrimSpace(in.TableID)
		if tableID == "" {
			return nil, status.Error(codes.InvalidArgument, "table_id is required")
		}

		entry, found, err := s.admin.FinalizePayment(ctx, tableID)
		if err := s.statusFor(MethodFinalizePayment, "table", tableID, found, err); err != nil {
			return nil, err
		}
		return encodeResponse(entry)
	})
}

// statusFor переводит результат операции панели в gRPC-статус.
func (s *KitchenService) statusFor(method, resource, id string, found bool, err error) error {
	switch {
	case err == nil && found:
		return nil
	case err == nil:
		return status.Errorf(codes.NotFound, "%s %s not found", resource, id)
	case domain.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvariantViolation),
		errors.Is(err, domain.ErrEmptyCart):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		s.logger.WithError(err).WithField("method", method).Error("kitchen operation failed")
		return status.Error(codes.Internal, "internal error")
	}
}
