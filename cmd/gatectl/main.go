package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/GriffinCanCode/gatedev/internal/api/rpc"
	"github.com/GriffinCanCode/gatedev/internal/client"
	"github.com/GriffinCanCode/gatedev/internal/domain/chardev"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/logging"
	"github.com/GriffinCanCode/gatedev/internal/infrastructure/tracing"
)

const usage = `usage: gatectl [-transport http|grpc] [-addr ADDR] [-v] <command> [flags]

commands:
  endpoints                      list endpoint aliases
  stats                          show device counters
  read  [-offset N] [-count N] [-wait D] <endpoint>
                                 wait for the next write and print the buffer
  write [-offset N] <endpoint> [data]
                                 write data (or stdin) and wake every reader
`

// device is the part of the server gatectl talks to, over either transport.
type device interface {
	Endpoints(ctx context.Context) ([]chardev.EndpointInfo, error)
	Open(ctx context.Context, endpoint, actor string) (chardev.SessionInfo, error)
	ReadAt(ctx context.Context, session string, off int64, count int) ([]byte, error)
	WriteAt(ctx context.Context, session string, data []byte, off int64) (int, error)
	Close(ctx context.Context, session string) error
	Stats(ctx context.Context) (chardev.Stats, error)
}

// rpcDevice adapts the gRPC client to device.
type rpcDevice struct {
	c *rpc.Client
}

func (d rpcDevice) Endpoints(ctx context.Context) ([]chardev.EndpointInfo, error) {
	resp, err := d.c.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Endpoints, nil
}

func (d rpcDevice) Open(ctx context.Context, endpoint, actor string) (chardev.SessionInfo, error) {
	return d.c.Open(ctx, endpoint, actor)
}

func (d rpcDevice) ReadAt(ctx context.Context, session string, off int64, count int) ([]byte, error) {
	return d.c.ReadAt(ctx, session, off, count)
}

func (d rpcDevice) WriteAt(ctx context.Context, session string, data []byte, off int64) (int, error) {
	return d.c.WriteAt(ctx, session, data, off)
}

func (d rpcDevice) Close(ctx context.Context, session string) error {
	return d.c.CloseSession(ctx, session)
}

func (d rpcDevice) Stats(ctx context.Context) (chardev.Stats, error) {
	resp, err := d.c.Stats(ctx)
	if err != nil {
		return chardev.Stats{}, err
	}
	return resp.Stats, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("gatectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	transport := global.String("transport", envOr("GATEDEV_TRANSPORT", "http"), "http or grpc")
	addr := global.String("addr", os.Getenv("GATEDEV_ADDR"), "server address (default http://localhost:8000 or localhost:50061)")
	actor := global.String("actor", "gatectl", "actor name recorded by the server")
	verbose := global.Bool("v", false, "log requests and trace spans to stderr")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	logger := logging.NewNop()
	if *verbose {
		if l, err := logging.New(logging.Config{Level: "debug", Development: true, OutputPaths: []string{"stderr"}}); err == nil {
			logger = l
		}
	}
	defer logger.Sync()

	dev, closeDev, err := connect(*transport, *addr, logger.Logger)
	if err != nil {
		fmt.Fprintf(stderr, "gatectl: %v\n", err)
		return 2
	}
	defer closeDev()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "endpoints":
		err = endpoints(ctx, dev, stdout)
	case "stats":
		err = stats(ctx, dev, stdout)
	case "read":
		err = read(ctx, dev, *actor, rest, stdout, stderr)
	case "write":
		err = write(ctx, dev, *actor, rest, stdin, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		global.Usage()
		return 2
	}

	var usageErr usageError
	switch {
	case errors.As(err, &usageErr):
		fmt.Fprintln(stderr, err)
		return 2
	case err != nil:
		fmt.Fprintf(stderr, "gatectl %s: %v\n", cmd, err)
		return 1
	}
	return 0
}

// connect builds the device for transport. The returned func releases it.
func connect(transport, addr string, logger *zap.Logger) (device, func(), error) {
	switch transport {
	case "http":
		if addr == "" {
			addr = "http://localhost:8000"
		}
		cfg := client.DefaultConfig(addr)
		cfg.Logger = logger
		return client.New(cfg), func() {}, nil
	case "grpc":
		if addr == "" {
			addr = "localhost:50061"
		}
		tracer := tracing.New("gatectl", logger)
		c, err := rpc.Dial(addr, grpc.WithChainUnaryInterceptor(tracing.GRPCClientInterceptor(tracer)))
		if err != nil {
			tracer.Close()
			return nil, nil, err
		}
		return rpcDevice{c: c}, func() {
			_ = c.Close()
			tracer.Close()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q", transport)
	}
}

type usageError string

func (e usageError) Error() string { return string(e) }

func endpoints(ctx context.Context, dev device, out io.Writer) error {
	eps, err := dev.Endpoints(ctx)
	if err != nil {
		return err
	}
	for _, ep := range eps {
		fmt.Fprintf(out, "%-16s minor=%d device=%s\n", ep.Name, ep.Minor, ep.Device)
	}
	return nil
}

func stats(ctx context.Context, dev device, out io.Writer) error {
	st, err := dev.Stats(ctx)
	if err != nil {
		return err
	}
	b, err := sonic.ConfigStd.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func read(ctx context.Context, dev device, actor string, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	fs.SetOutput(errOut)
	offset := fs.Int64("offset", 0, "byte offset")
	count := fs.Int("count", 0, "bytes to read (0 = whole buffer)")
	wait := fs.Duration("wait", 0, "give up after this long (0 = wait forever)")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if fs.NArg() != 1 {
		return usageError("read: exactly one endpoint required")
	}
	if *count < 0 {
		return usageError("read: count must not be negative")
	}

	return withSession(ctx, dev, fs.Arg(0), actor, func(sid string) error {
		rctx := ctx
		if *wait > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, *wait)
			defer cancel()
		}

		data, err := dev.ReadAt(rctx, sid, *offset, *count)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	})
}

func write(ctx context.Context, dev device, actor string, args []string, in io.Reader, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	fs.SetOutput(errOut)
	offset := fs.Int64("offset", 0, "byte offset")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	var data []byte
	switch fs.NArg() {
	case 1:
		b, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		data = b
	case 2:
		data = []byte(fs.Arg(1))
	default:
		return usageError("write: endpoint and optional data required")
	}

	return withSession(ctx, dev, fs.Arg(0), actor, func(sid string) error {
		n, err := dev.WriteAt(ctx, sid, data, *offset)
		if err != nil {
			return err
		}
		if n < len(data) {
			fmt.Fprintf(out, "wrote %d of %d bytes (buffer full)\n", n, len(data))
		} else {
			fmt.Fprintf(out, "wrote %d bytes\n", n)
		}
		return nil
	})
}

// withSession opens a session for the duration of fn.
func withSession(ctx context.Context, dev device, endpoint, actor string, fn func(sid string) error) error {
	s, err := dev.Open(ctx, endpoint, actor)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = dev.Close(cctx, string(s.ID))
	}()
	return fn(string(s.ID))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
