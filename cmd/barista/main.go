package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"coffee-machine-demo/internal/client"
	"coffee-machine-demo/internal/cupboard"
	"coffee-machine-demo/internal/fsm"
	"coffee-machine-demo/internal/types"
	"coffee-machine-demo/internal/util"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

const usage = `barista drives a running coffee-machine daemon.

Usage:
  barista [--addr URL] plug
  barista [--addr URL] water VOLUME
  barista [--addr URL] beans VOLUME COFFEE_TYPE
  barista [--addr URL] order [--type T] [--container cup|mug] [--capacity C] [--priority P] [--wait]
  barista [--addr URL] failure-check
  barista [--addr URL] state
`

func main() {
	global := flag.NewFlagSet("barista", flag.ExitOnError)
	addr := global.StringP("addr", "a", envOr("BARISTA_ADDR", "http://localhost:8080"), "daemon address")
	verbose := global.BoolP("verbose", "v", false, "log requests to stderr")
	global.SetInterspersed(false)
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		global.PrintDefaults()
	}
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		global.Usage()
		os.Exit(2)
	}

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	c := client.New(*addr, logger)
	ctx := util.ContextWithTraceID(context.Background(), util.NewTraceID())

	if err := run(ctx, c, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) error {
	switch cmd {
	case "plug":
		return printResult(c.Plug(ctx))
	case "water":
		if len(args) != 1 {
			return errors.New("usage: water VOLUME")
		}
		volume, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return errors.Wrap(err, "volume")
		}
		return printResult(c.AddWater(ctx, volume))
	case "beans":
		if len(args) != 2 {
			return errors.New("usage: beans VOLUME COFFEE_TYPE")
		}
		volume, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return errors.Wrap(err, "volume")
		}
		coffeeType, err := cupboard.ParseCoffeeType(args[1])
		if err != nil {
			return err
		}
		return printResult(c.AddBeans(ctx, volume, coffeeType))
	case "order":
		return order(ctx, c, args)
	case "failure-check":
		return printResult(c.CheckFailure(ctx))
	case "state":
		return printResult(c.State(ctx))
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func order(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	coffeeType := fs.StringP("type", "t", string(cupboard.Arabica), "coffee type")
	kind := fs.String("container", string(cupboard.KindCup), "container kind (cup or mug)")
	capacity := fs.Float64("capacity", 0.15, "container capacity")
	priority := fs.IntP("priority", "p", 0, "higher is served first")
	wait := fs.BoolP("wait", "w", false, "poll until the order is served or failed")
	timeout := fs.Duration("timeout", time.Minute, "how long --wait polls")
	if err := fs.Parse(args); err != nil {
		return err
	}

	container := types.ContainerSpec{Kind: cupboard.Kind(*kind), Capacity: *capacity}
	id, err := c.SubmitOrder(ctx, cupboard.CoffeeType(*coffeeType), container, *priority)
	if err != nil {
		return err
	}
	fmt.Println(id)
	if !*wait {
		return nil
	}

	deadline := time.Now().Add(*timeout)
	for time.Now().Before(deadline) {
		state, err := c.State(ctx)
		if err != nil {
			return err
		}
		if o, ok := state.Orders[id]; ok {
			switch o.Status {
			case string(fsm.StateServed):
				return printJSON(o)
			case string(fsm.StateFailed):
				_ = printJSON(o)
				return errors.Errorf("order %s failed: %s", id, o.Error)
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return errors.Errorf("order %s not finished after %s", id, *timeout)
}

func printResult(v interface{}, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
