// Команда loadtest нагружает gRPC KitchenService: ставит заказы на существующие
// столы, проводит их через кухню и при желании закрывает счёт.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/transport/grpcapi"
)

type loadMode string

const (
	// modeOrder только ставит заказ столу.
	modeOrder loadMode = "order"
	// modeOrderReady доводит заказ до ready (заказ уходит в архив).
	modeOrderReady loadMode = "order-ready"
	// modeOrderPay вдобавок закрывает счёт стола.
	modeOrderPay loadMode = "order-pay"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	payRate     int
	itemName    string
	priceMinor  int64
	outputPath  string
}

// kitchenClient: часть grpcapi.Client, которую использует сценарий.
type kitchenClient interface {
	ListTables(ctx context.Context) ([]domain.Table, error)
	AddOrderToTable(ctx context.Context, idemKey, tableID string, items ...domain.OrderItem) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, next domain.OrderStatus) (domain.Order, error)
	FinalizePayment(ctx context.Context, idemKey, tableID string) (domain.HistoryEntry, error)
}

var _ kitchenClient = (*grpcapi.Client)(nil)

func parseConfig() (config, error) {
	var (
		cfg           config
		modeValue     string
		timeoutValue  string
		durationValue string
	)

	flag.StringVar(&cfg.addr, "addr", "localhost:50051", "адрес gRPC сервера")
	flag.IntVar(&cfg.total, "total", 400, "сколько сценариев выполнить; вместе с -duration работает как верхняя граница")
	flag.StringVar(&durationValue, "duration", "0s", "длительность прогона (например 10m)")
	flag.IntVar(&cfg.concurrency, "concurrency", 40, "число параллельных воркеров")
	flag.IntVar(&cfg.connections, "connections", 20, "число gRPC соединений")
	flag.StringVar(&timeoutValue, "timeout", "5s", "таймаут одного RPC")
	flag.StringVar(&modeValue, "mode", string(modeOrder), "сценарий: order | order-ready | order-pay")
	flag.IntVar(&cfg.payRate, "pay-rate", 0, "процент сценариев order-ready, которые закрывают счёт (0..100)")
	flag.StringVar(&cfg.itemName, "item", "", "название позиции; пусто: демо-комбо кухни")
	flag.Int64Var(&cfg.priceMinor, "price-minor", 0, "цена позиции в сентаво (нужна вместе с -item)")
	flag.StringVar(&cfg.outputPath, "output", "", "файл для JSON отчёта")
	flag.Parse()

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	flag.CommandLine.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.itemName = strings.TrimSpace(cfg.itemName)

	return cfg, cfg.validate()
}

func (cfg config) validate() error {
	switch {
	case cfg.duration < 0:
		return errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return errors.New("timeout must be > 0")
	case cfg.payRate < 0 || cfg.payRate > 100:
		return errors.New("pay-rate must be between 0 and 100")
	case cfg.itemName != "" && cfg.priceMinor <= 0:
		return errors.New("price-minor must be > 0 when item is set")
	case cfg.itemName == "" && cfg.priceMinor != 0:
		return errors.New("item is required when price-minor is set")
	}
	return nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeOrder, modeOrderReady, modeOrderPay:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

// orderItems: пустой список означает демо-комбо на стороне кухни.
func (cfg config) orderItems() []domain.OrderItem {
	if cfg.itemName == "" {
		return nil
	}
	return []domain.OrderItem{{Name: cfg.itemName, Price: domain.Money(cfg.priceMinor)}}
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]kitchenClient, 0, cfg.connections)
	for range cfg.connections {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcapi.NewClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	result, err := run(context.Background(), cfg, clients, os.Stdout)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run выполняет прогон и печатает итог. Столы читаются один раз до старта:
// сценарии распределяются по ним по кругу.
func run(ctx context.Context, cfg config, clients []kitchenClient, out io.Writer) (report, error) {
	if len(clients) == 0 {
		return report{}, errors.New("at least one client is required")
	}

	tablesCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	tables, err := clients[0].ListTables(tablesCtx)
	cancel()
	if err != nil {
		return report{}, fmt.Errorf("list tables: %w", err)
	}
	if len(tables) == 0 {
		return report{}, errors.New("no tables to load: create tables through the kitchen API first")
	}
	tableIDs := make([]string, 0, len(tables))
	for _, table := range tables {
		tableIDs = append(tableIDs, table.ID)
	}

	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := range cfg.concurrency {
		wg.Add(1)
		go func(cli kitchenClient) {
			defer wg.Done()
			for id := range jobs {
				_ = runScenario(ctx, cli, cfg, tableIDs[id%len(tableIDs)], id, runID, col)
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	result.Tables = len(tableIDs)

	printReport(out, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
	}
	return result, nil
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := range cfg.total {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

func runScenario(ctx context.Context, client kitchenClient, cfg config, tableID string, index int, runID string, col *collector) error {
	scenarioStart := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record(scenarioMethod, time.Since(scenarioStart), scenarioCode)
	}()

	fail := func(err error) error {
		scenarioCode = grpcCode(err)
		return err
	}

	var order domain.Order
	err := timed(ctx, cfg.timeout, col, "AddOrderToTable", func(ctx context.Context) error {
		var err error
		order, err = client.AddOrderToTable(ctx, fmt.Sprintf("lt-order-%s-%d", runID, index), tableID, cfg.orderItems()...)
		return err
	})
	if err != nil {
		return fail(err)
	}
	if order.ID == "" {
		return fail(status.Error(codes.Internal, "add order returned empty order id"))
	}
	if cfg.mode == modeOrder {
		return nil
	}

	for _, next := range []domain.OrderStatus{domain.OrderStatusPreparing, domain.OrderStatusReady} {
		err := timed(ctx, cfg.timeout, col, "UpdateOrderStatus", func(ctx context.Context) error {
			_, err := client.UpdateOrderStatus(ctx, order.ID, next)
			return err
		})
		if err != nil {
			return fail(err)
		}
	}

	if cfg.mode == modeOrderPay || shouldPay(index, cfg.payRate) {
		err := timed(ctx, cfg.timeout, col, "FinalizePayment", func(ctx context.Context) error {
			_, err := client.FinalizePayment(ctx, fmt.Sprintf("lt-pay-%s-%d", runID, index), tableID)
			return err
		})
		if err != nil {
			return fail(err)
		}
	}
	return nil
}

// timed выполняет один RPC с таймаутом и записывает его в collector.
func timed(ctx context.Context, timeout time.Duration, col *collector, method string, call func(context.Context) error) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := call(callCtx)
	col.record(method, time.Since(start), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func shouldPay(index, payRate int) bool {
	if payRate <= 0 {
		return false
	}
	if payRate >= 100 {
		return true
	}
	return index%100 < payRate
}
