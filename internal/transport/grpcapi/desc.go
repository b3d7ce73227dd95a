// Package grpcapi: gRPC-доступ кухонного экрана к панели администратора.
// Сообщения передаются как google.protobuf.Struct, поэтому сервис не требует сгенерированного кода.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName: полное имя сервиса.
const ServiceName = "gusto.v1.KitchenService"

// Полные имена методов.
const (
	MethodListTables        = "/" + ServiceName + "/ListTables"
	MethodListActiveOrders  = "/" + ServiceName + "/ListActiveOrders"
	MethodAddOrderToTable   = "/" + ServiceName + "/AddOrderToTable"
	MethodUpdateOrderStatus = "/" + ServiceName + "/UpdateOrderStatus"
	MethodFinalizePayment   = "/" + ServiceName + "/FinalizePayment"
)

// KitchenServer: серверная сторона KitchenService.
type KitchenServer interface {
	ListTables(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActiveOrders(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddOrderToTable(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateOrderStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FinalizePayment(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc описывает KitchenService для grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KitchenServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListTables", Handler: unaryHandler(MethodListTables, KitchenServer.ListTables)},
		{MethodName: "ListActiveOrders", Handler: unaryHandler(MethodListActiveOrders, KitchenServer.ListActiveOrders)},
		{MethodName: "AddOrderToTable", Handler: unaryHandler(MethodAddOrderToTable, KitchenServer.AddOrderToTable)},
		{MethodName: "UpdateOrderStatus", Handler: unaryHandler(MethodUpdateOrderStatus, KitchenServer.UpdateOrderStatus)},
		{MethodName: "FinalizePayment", Handler: unaryHandler(MethodFinalizePayment, KitchenServer.FinalizePayment)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gusto/v1/kitchen.proto",
}

// Register регистрирует реализацию на сервере.
func Register(registrar grpc.ServiceRegistrar, srv KitchenServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(KitchenServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KitchenServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KitchenServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
