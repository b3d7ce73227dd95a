package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/kitchen"
	"github.com/vladislavdragonenkov/gusto/internal/state"
	"github.com/vladislavdragonenkov/gusto/internal/storage/memory"
	"github.com/vladislavdragonenkov/gusto/internal/transport/grpcapi"
)

type fakeKitchenClient struct {
	mu        sync.Mutex
	tables    []domain.Table
	listErr   error
	addErr    error
	addID     string
	statusErr error
	calls     []string
	keys      []string
	items     [][]domain.OrderItem
}

func (f *fakeKitchenClient) ListTables(context.Context) ([]domain.Table, error) {
	return f.tables, f.listErr
}

func (f *fakeKitchenClient) AddOrderToTable(_ context.Context, idemKey, tableID string, items ...domain.OrderItem) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "add:"+tableID)
	f.keys = append(f.keys, idemKey)
	f.items = append(f.items, items)
	if f.addErr != nil {
		return domain.Order{}, f.addErr
	}
	order := domain.Order{TableID: tableID}
	order.ID = f.addID
	return order, nil
}

func (f *fakeKitchenClient) UpdateOrderStatus(_ context.Context, orderID string, next domain.OrderStatus) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "status:"+string(next))
	if f.statusErr != nil {
		return domain.Order{}, f.statusErr
	}
	order := domain.Order{Status: next}
	order.ID = orderID
	return order, nil
}

func (f *fakeKitchenClient) FinalizePayment(_ context.Context, idemKey, tableID string) (domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pay:"+tableID)
	f.keys = append(f.keys, idemKey)
	return domain.HistoryEntry{}, nil
}

func withCLIArgs(t *testing.T, args []string, fn func()) {
	t.Helper()

	oldArgs := os.Args
	oldCommandLine := flag.CommandLine

	os.Args = append([]string{"loadtest"}, args...)
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	flag.CommandLine = fs

	defer func() {
		os.Args = oldArgs
		flag.CommandLine = oldCommandLine
	}()

	fn()
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "order", input: "order", want: modeOrder},
		{name: "order-ready", input: " order-ready ", want: modeOrderReady},
		{name: "order-pay", input: "order-pay", want: modeOrderPay},
		{name: "unsupported", input: "create", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		withCLIArgs(t, []string{
			"-addr=127.0.0.1:50051",
			"-mode=order-ready",
			"-total=12",
			"-concurrency=3",
			"-connections=2",
			"-timeout=2s",
			"-pay-rate=10",
			"-item= Feijoada ",
			"-price-minor=4850",
			"-output=/tmp/out.json",
		}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !cfg.totalSet || cfg.duration != 0 {
				t.Fatalf("unexpected run target: %+v", cfg)
			}
			if cfg.mode != modeOrderReady || cfg.payRate != 10 {
				t.Fatalf("unexpected mode: %s pay-rate=%d", cfg.mode, cfg.payRate)
			}
			if cfg.total != 12 || cfg.concurrency != 3 || cfg.connections != 2 {
				t.Fatalf("unexpected numeric config: %+v", cfg)
			}
			if cfg.timeout != 2*time.Second {
				t.Fatalf("unexpected timeout: %s", cfg.timeout)
			}
			items := cfg.orderItems()
			if len(items) != 1 || items[0].Name != "Feijoada" || items[0].Price != domain.Money(4850) {
				t.Fatalf("unexpected items: %+v", items)
			}
		})
	})

	t.Run("duration mode uses demo combo", func(t *testing.T) {
		withCLIArgs(t, []string{"-duration=3s", "-concurrency=2", "-connections=1"}, func() {
			cfg, err := parseConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.duration != 3*time.Second {
				t.Fatalf("unexpected duration: %s", cfg.duration)
			}
			if cfg.totalSet {
				t.Fatal("expected totalSet=false when -total was not provided")
			}
			if cfg.orderItems() != nil {
				t.Fatalf("expected demo combo, got %+v", cfg.orderItems())
			}
		})
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "parse duration"},
			{name: "invalid timeout", args: []string{"-timeout=soon"}, wantErr: "parse timeout"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "invalid pay rate", args: []string{"-pay-rate=101"}, wantErr: "pay-rate must be between 0 and 100"},
			{name: "empty total", args: []string{"-duration=0s", "-total=0"}, wantErr: "total must be > 0"},
			{name: "zero connections", args: []string{"-connections=0"}, wantErr: "connections must be > 0"},
			{name: "item without price", args: []string{"-item=Pastel"}, wantErr: "price-minor must be > 0"},
			{name: "price without item", args: []string{"-price-minor=100"}, wantErr: "item is required"},
			{name: "bad mode", args: []string{"-mode=refund"}, wantErr: "unsupported mode"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				withCLIArgs(t, tc.args, func() {
					_, err := parseConfig()
					if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
						t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
					}
				})
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration mode", func(t *testing.T) {
		jobs := make(chan int, 32)
		done := make(chan struct{})
		go func() {
			dispatchJobs(jobs, config{duration: 20 * time.Millisecond})
			close(done)
		}()

		count := 0
		for range jobs {
			count++
		}
		<-done
		if count == 0 {
			t.Fatal("expected non-zero jobs for duration mode")
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record(scenarioMethod, 10*time.Millisecond, codes.OK)
	c.record(scenarioMethod, 20*time.Millisecond, codes.FailedPrecondition)
	c.record("AddOrderToTable", 15*time.Millisecond, codes.OK)

	snap, ok := c.snapshot(scenarioMethod)
	if !ok {
		t.Fatal("scenario snapshot missing")
	}
	if snap.Calls != 2 || snap.Success != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}
	if snap.Codes[codes.OK.String()] != 1 || snap.Codes[codes.FailedPrecondition.String()] != 1 {
		t.Fatalf("unexpected codes: %+v", snap.Codes)
	}
	if _, ok := c.snapshot("FinalizePayment"); ok {
		t.Fatal("unexpected snapshot for a method that was never called")
	}

	r := c.buildReport(time.Now(), 2*time.Second)
	if r.TotalScenarios != 2 || r.FailedScenarios != 1 || r.ErrorRate != 0.5 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.RPS != 1 {
		t.Fatalf("expected rps=1, got %f", r.RPS)
	}
	if _, ok := r.Methods["AddOrderToTable"]; !ok {
		t.Fatal("expected AddOrderToTable stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := grpcCode(nil); got != codes.OK {
		t.Fatalf("grpcCode(nil) = %s, want OK", got)
	}
	if got := grpcCode(status.Error(codes.Unavailable, "down")); got != codes.Unavailable {
		t.Fatalf("unexpected grpc code: %s", got)
	}

	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	summary := buildLatencySummary([]float64{40, 10, 30, 20})
	if summary.Min != 10 || summary.Max != 40 || summary.Avg != 25 || summary.P50 != 25 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}
	if got := percentile([]float64{7}, 99); got != 7 {
		t.Fatalf("single value percentile must be the value, got %f", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty percentile must be 0, got %f", got)
	}

	if shouldPay(5, 0) || !shouldPay(5, 100) || !shouldPay(105, 10) || shouldPay(50, 10) {
		t.Fatal("unexpected shouldPay results")
	}

	if got := runTarget(config{total: 50}); got != "count:50" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second}); got != "duration:2s" {
		t.Fatalf("unexpected duration run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}); got != "duration:2s,max-total:10" {
		t.Fatalf("unexpected capped duration run target: %s", got)
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	if err := writeJSONReport(path, report{Tables: 3, TotalScenarios: 2, SuccessScenarios: 2}); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.Tables != 3 || decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}

	if err := writeJSONReport("../escape.json", report{}); err == nil {
		t.Fatal("expected error for path outside current directory")
	}
	if err := writeJSONReport(".", report{}); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestRunScenario(t *testing.T) {
	t.Run("order-pay walks the kitchen flow", func(t *testing.T) {
		c := newCollector()
		client := &fakeKitchenClient{addID: "order-1"}
		cfg := config{mode: modeOrderPay, timeout: time.Second}

		if err := runScenario(context.Background(), client, cfg, "table-1", 3, "run", c); err != nil {
			t.Fatalf("runScenario failed: %v", err)
		}
		want := []string{"add:table-1", "status:preparing", "status:ready", "pay:table-1"}
		if !slices.Equal(client.calls, want) {
			t.Fatalf("unexpected calls: %v", client.calls)
		}
		if !slices.Equal(client.keys, []string{"lt-order-run-3", "lt-pay-run-3"}) {
			t.Fatalf("unexpected idempotency keys: %v", client.keys)
		}
		if client.items[0] != nil {
			t.Fatalf("expected demo combo, got %+v", client.items[0])
		}
		if snap, _ := c.snapshot("UpdateOrderStatus"); snap.Calls != 2 {
			t.Fatalf("expected two status updates, got %+v", snap)
		}
	})

	t.Run("order mode stops after add", func(t *testing.T) {
		client := &fakeKitchenClient{addID: "order-1"}
		cfg := config{mode: modeOrder, timeout: time.Second, itemName: "Pastel", priceMinor: 900}

		if err := runScenario(context.Background(), client, cfg, "table-1", 0, "run", newCollector()); err != nil {
			t.Fatalf("runScenario failed: %v", err)
		}
		if len(client.calls) != 1 {
			t.Fatalf("unexpected calls: %v", client.calls)
		}
		if got := client.items[0]; len(got) != 1 || got[0].Price != domain.Money(900) {
			t.Fatalf("unexpected items: %+v", got)
		}
	})

	t.Run("order-ready pays by rate", func(t *testing.T) {
		client := &fakeKitchenClient{addID: "order-1"}
		cfg := config{mode: modeOrderReady, timeout: time.Second, payRate: 50}

		_ = runScenario(context.Background(), client, cfg, "t", 10, "run", newCollector())
		_ = runScenario(context.Background(), client, cfg, "t", 60, "run", newCollector())
		pays := 0
		for _, call := range client.calls {
			if strings.HasPrefix(call, "pay:") {
				pays++
			}
		}
		if pays != 1 {
			t.Fatalf("expected one payment, got calls %v", client.calls)
		}
	})

	t.Run("errors are recorded with grpc codes", func(t *testing.T) {
		c := newCollector()
		client := &fakeKitchenClient{addErr: status.Error(codes.NotFound, "table")}
		err := runScenario(context.Background(), client, config{mode: modeOrder, timeout: time.Second}, "t", 0, "run", c)
		if status.Code(err) != codes.NotFound {
			t.Fatalf("expected NotFound, got %v", err)
		}
		snap, _ := c.snapshot(scenarioMethod)
		if snap.Codes[codes.NotFound.String()] != 1 {
			t.Fatalf("unexpected scenario codes: %+v", snap.Codes)
		}

		c = newCollector()
		client = &fakeKitchenClient{addID: "order-1", statusErr: status.Error(codes.FailedPrecondition, "transition")}
		err = runScenario(context.Background(), client, config{mode: modeOrderReady, timeout: time.Second}, "t", 0, "run", c)
		if status.Code(err) != codes.FailedPrecondition {
			t.Fatalf("expected FailedPrecondition, got %v", err)
		}

		c = newCollector()
		client = &fakeKitchenClient{}
		err = runScenario(context.Background(), client, config{mode: modeOrder, timeout: time.Second}, "t", 0, "run", c)
		if status.Code(err) != codes.Internal {
			t.Fatalf("expected Internal for empty order id, got %v", err)
		}
	})
}

func TestRun_RequiresTables(t *testing.T) {
	cfg := config{mode: modeOrder, total: 1, concurrency: 1, timeout: time.Second}

	if _, err := run(context.Background(), cfg, nil, io.Discard); err == nil {
		t.Fatal("expected error without clients")
	}
	if _, err := run(context.Background(), cfg, []kitchenClient{&fakeKitchenClient{}}, io.Discard); err == nil ||
		!strings.Contains(err.Error(), "no tables") {
		t.Fatalf("expected no tables error, got %v", err)
	}
	listErr := &fakeKitchenClient{listErr: errors.New("down")}
	if _, err := run(context.Background(), cfg, []kitchenClient{listErr}, io.Discard); err == nil ||
		!strings.Contains(err.Error(), "list tables") {
		t.Fatalf("expected list tables error, got %v", err)
	}
}

func TestRun_AgainstKitchenService(t *testing.T) {
	admin, addr := startKitchen(t, 2)

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var out bytes.Buffer
	cfg := config{mode: modeOrderPay, total: 6, concurrency: 2, timeout: 2 * time.Second}
	result, err := run(context.Background(), cfg, []kitchenClient{grpcapi.NewClient(conn)}, &out)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.TotalScenarios != 6 || result.FailedScenarios != 0 || result.Tables != 2 {
		t.Fatalf("unexpected report: %+v", result)
	}
	if !strings.Contains(out.String(), "FinalizePayment") {
		t.Fatalf("expected FinalizePayment section, got: %s", out.String())
	}

	if active := admin.ActiveOrders(); len(active) != 0 {
		t.Fatalf("ready orders must leave the active list, got %d", len(active))
	}
	if archived := admin.ArchivedOrders(); len(archived) != 6 {
		t.Fatalf("expected 6 archived orders, got %d", len(archived))
	}
	for _, order := range admin.ArchivedOrders() {
		if !order.Settled {
			t.Fatalf("order %s must be settled", order.ID)
		}
	}
	if total := admin.HistoryTotal(); total != domain.Money(6*4500) {
		t.Fatalf("unexpected history total: %s", total)
	}
}

func TestPrintReport(t *testing.T) {
	r := report{
		Tables:           1,
		TotalScenarios:   2,
		SuccessScenarios: 2,
		Methods: map[string]methodReport{
			scenarioMethod:    {Calls: 2, Success: 2},
			"AddOrderToTable": {Calls: 2, Success: 2},
		},
	}

	var out bytes.Buffer
	printReport(&out, r, config{mode: modeOrder, total: 2})

	if !strings.Contains(out.String(), "Load test summary") {
		t.Fatalf("expected summary header, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "AddOrderToTable: calls=2") {
		t.Fatalf("expected method section, got: %s", out.String())
	}
	if strings.Contains(out.String(), scenarioMethod+": calls") {
		t.Fatalf("scenario must not be printed as a method: %s", out.String())
	}
}

func TestMainSmoke(t *testing.T) {
	_, addr := startKitchen(t, 1)
	outPath := filepath.Join(t.TempDir(), "main-report.json")

	withCLIArgs(t, []string{
		"-addr=" + addr,
		"-mode=order-ready",
		"-total=5",
		"-concurrency=2",
		"-connections=1",
		"-timeout=2s",
		"-output=" + outPath,
	}, func() {
		main()
	})

	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected report file from main: %v", err)
	}
}

// startKitchen поднимает настоящий KitchenService на TCP с заданным числом столов.
func startKitchen(t *testing.T, tables int) (*kitchen.Admin, string) {
	t.Helper()

	admin := kitchen.NewAdmin(memory.NewKeyValueStore(), kitchen.Renderers{}, kitchen.Config{BcryptCost: bcrypt.MinCost}, state.Options{})
	if err := admin.Load(context.Background()); err != nil {
		t.Fatalf("load admin: %v", err)
	}
	for i := 1; i <= tables; i++ {
		if _, err := admin.CreateTable(context.Background(), domain.TableInput{
			Number: i, CustomerName: "Carga", PeopleCount: 2, Status: domain.TableStatusOccupied,
		}); err != nil {
			t.Fatalf("create table: %v", err)
		}
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	grpcapi.Register(srv, grpcapi.NewKitchenService(admin, grpcapi.WithIdempotency(memory.NewIdempotencyRepository())))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return admin, lis.Addr().String()
}
