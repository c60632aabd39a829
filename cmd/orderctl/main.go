// Command orderctl inspects and updates orders over gRPC.
//
//	orderctl [-addr host:port] [-config path] list [-status s]
//	orderctl [-addr host:port] [-config path] get <id>
//	orderctl [-addr host:port] [-config path] status <id> <status>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/discovery"
	"github.com/example/bistro/pkg/grpc"
	"github.com/example/bistro/pkg/logging"
)

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: orderctl [flags] list [-status s] | get <id> | status <id> <status>\n")
		fs.PrintDefaults()
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code. All cleanup
// is deferred here so it happens before main exits.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("orderctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "", "order service address; discovered through etcd when empty")
	configPath := fs.String("config", "", "path to config file")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	fs.Usage = usage(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	cfg.Log.Encoding = "console"
	cfg.Log.OutputPaths = []string{"stderr"}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := connect(ctx, cfg, *addr, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to connect: %v\n", err)
		return 1
	}
	defer client.Close()

	result, err := dispatch(ctx, client, fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, describe(err))
		return exitCode(err)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "Failed to write result: %v\n", err)
		return 1
	}
	return 0
}

func connect(ctx context.Context, cfg *config.Config, addr string, logger *zap.Logger) (*grpc.OrderClient, error) {
	if addr != "" {
		return grpc.Dial(addr, logger)
	}

	fallback := cfg.Server.Addr()
	if len(cfg.Etcd.Endpoints) == 0 {
		return grpc.Dial(fallback, logger)
	}
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd, logger)
	if err != nil {
		logger.Warn("Failed to connect to etcd, using configured address", zap.Error(err))
		return grpc.Dial(fallback, logger)
	}
	defer sd.Close()
	return grpc.DialDiscovered(ctx, sd, cfg.Server.Name, fallback, logger)
}

func dispatch(ctx context.Context, client *grpc.OrderClient, args []string) (any, error) {
	switch cmd, rest := args[0], args[1:]; cmd {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		status := fs.String("status", "", "only orders with this status")
		if err := fs.Parse(rest); err != nil {
			return nil, err
		}
		return client.ListOrders(ctx, *status)
	case "get":
		if len(rest) != 1 {
			return nil, errors.New("get takes exactly one order id")
		}
		return client.GetOrderByID(ctx, rest[0])
	case "status":
		if len(rest) != 2 {
			return nil, errors.New("status takes an order id and a status")
		}
		return client.UpdateOrderStatus(ctx, rest[0], rest[1])
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func describe(err error) string {
	violations := apperr.ViolationsOf(err)
	if len(violations) == 0 {
		return err.Error()
	}
	msg := "invalid request:"
	for _, v := range violations {
		msg += fmt.Sprintf("\n  %s: %s", v.Field, v.Reason)
	}
	return msg
}

func exitCode(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return 2
	case apperr.KindNotFound:
		return 3
	default:
		return 1
	}
}
