package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"slamtrader/internal/broker"
	"slamtrader/internal/config"
	"slamtrader/internal/dashboard"
	"slamtrader/internal/domain"
	"slamtrader/internal/store"
	"slamtrader/internal/trader"
	"slamtrader/internal/util"
)

type brokerFactory func(ctx context.Context, cfg *config.Config) (broker.Broker, error)

// newBroker builds the broker selected in the configuration.
func newBroker(ctx context.Context, cfg *config.Config) (broker.Broker, error) {
	switch cfg.Broker {
	case "tdameritrade":
		b, err := broker.NewTDAmeritradeBroker(ctx, broker.TDAmeritradeOpts{
			AccountID:   cfg.TDAmeritrade.AccountID,
			APIKey:      cfg.TDAmeritrade.APIKey,
			TokenPath:   cfg.TDAmeritrade.TokenPath,
			RedirectURI: cfg.TDAmeritrade.RedirectURI,
			BaseURL:     cfg.TDAmeritrade.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	case "alpaca":
		return broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL), nil
	case "simulator":
		// Dry run: each invocation starts from an empty account.
		slog.Warn("simulator broker selected; orders go nowhere and nothing persists between runs")
		return broker.NewSimulatorBroker(), nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}

type application struct {
	stdout    io.Writer
	stderr    io.Writer
	newBroker brokerFactory
}

func newApp(stdout, stderr io.Writer, factory brokerFactory) *cli.App {
	a := &application{stdout: stdout, stderr: stderr, newBroker: factory}

	return &cli.App{
		Name:      "slamtrader",
		Usage:     "manage equity orders on a brokerage account",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		// main decides the exit code.
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				Value:   "config/slamtrader.yaml",
				EnvVars: []string{"SLAMTRADER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log broker requests to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list-orders",
				Usage:  "list active orders",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "include inactive orders"}},
				Action: a.listOrders,
			},
			{
				Name:      "cancel-order",
				Usage:     "cancel an active order",
				ArgsUsage: "ORDER_ID",
				Action:    a.cancelOrder,
			},
			{
				Name:      "buy-market",
				Usage:     "buy shares at market",
				ArgsUsage: "SYMBOL QUANTITY",
				Action:    a.buyMarket,
			},
			{
				Name:      "buy-limit",
				Usage:     "buy shares with a good-till-cancel limit order",
				ArgsUsage: "SYMBOL QUANTITY PRICE",
				Action:    a.buyLimit,
			},
			{
				Name:      "sell-stop",
				Usage:     "sell a percentage of a position with a good-till-cancel stop",
				ArgsUsage: "SYMBOL PERCENT STOP_PRICE",
				Action:    a.sellStop,
			},
			{
				Name:      "sell-oco",
				Usage:     "place a stop-loss and a profit target that cancel each other",
				ArgsUsage: "SYMBOL QUANTITY TARGET_RATIO TARGET_PRICE STOP_PRICE",
				Action:    a.sellOCO,
			},
			{
				Name:   "positions",
				Usage:  "show held positions",
				Action: a.positions,
			},
			{
				Name:  "export",
				Usage: "write orders and positions to Parquet files",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "output directory", Value: "snapshot"},
				},
				Action: a.export,
			},
		},
	}
}

// trader loads the configuration and connects to the broker.
func (a *application) trader(c *cli.Context) (*trader.Trader, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if c.Bool("debug") {
		level = "debug"
	}
	util.SetDefault(util.NewLogger(level, cfg.Logging.Format, a.stderr))

	b, err := a.newBroker(c.Context, cfg)
	if err != nil {
		return nil, err
	}
	t := trader.New(b, trader.Options{
		LookbackDays: cfg.Orders.LookbackDays,
		Notify:       func(msg string) { fmt.Fprintln(a.stdout, msg) },
	})
	return t, nil
}

// ---------------------------------------------------------------------------
// Actions
// ---------------------------------------------------------------------------

func (a *application) listOrders(c *cli.Context) error {
	if _, err := positional(c, 0); err != nil {
		return err
	}
	t, err := a.connect(c)
	if err != nil {
		return err
	}
	orders, err := t.ListOrders(c.Context, c.Bool("all"))
	if err != nil {
		return fail(err)
	}
	for _, o := range orders {
		fmt.Fprintln(a.stdout, o.Render())
	}
	return nil
}

func (a *application) cancelOrder(c *cli.Context) error {
	args, err := positional(c, 1)
	if err != nil {
		return err
	}
	id := domain.OrderID(args[0])

	t, err := a.connect(c)
	if err != nil {
		return err
	}
	if err := t.CancelOrder(c.Context, id); err != nil {
		return fail(err)
	}
	fmt.Fprintf(a.stdout, "%s canceled\n", id)
	return nil
}

func (a *application) buyMarket(c *cli.Context) error {
	args, err := positional(c, 2)
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}

	t, err := a.connect(c)
	if err != nil {
		return err
	}
	return a.printOrder(t.BuyMarket(c.Context, symbolArg(args[0]), qty))
}

func (a *application) buyLimit(c *cli.Context) error {
	args, err := positional(c, 3)
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	limit, err := parseDecimal("price", args[2])
	if err != nil {
		return err
	}

	t, err := a.connect(c)
	if err != nil {
		return err
	}
	return a.printOrder(t.BuyLimit(c.Context, symbolArg(args[0]), qty, limit))
}

func (a *application) sellStop(c *cli.Context) error {
	args, err := positional(c, 3)
	if err != nil {
		return err
	}
	percent, err := parseDecimal("percent", args[1])
	if err != nil {
		return err
	}
	stop, err := parseDecimal("stop price", args[2])
	if err != nil {
		return err
	}

	t, err := a.connect(c)
	if err != nil {
		return err
	}
	return a.printOrder(t.SellStop(c.Context, symbolArg(args[0]), percent, stop))
}

func (a *application) sellOCO(c *cli.Context) error {
	args, err := positional(c, 5)
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	ratio, err := parseDecimal("target ratio", args[2])
	if err != nil {
		return err
	}
	target, err := parseDecimal("target price", args[3])
	if err != nil {
		return err
	}
	stop, err := parseDecimal("stop price", args[4])
	if err != nil {
		return err
	}

	t, err := a.connect(c)
	if err != nil {
		return err
	}
	return a.printOrder(t.SellOCO(c.Context, symbolArg(args[0]), qty, ratio, target, stop))
}

func (a *application) positions(c *cli.Context) error {
	if _, err := positional(c, 0); err != nil {
		return err
	}
	t, err := a.connect(c)
	if err != nil {
		return err
	}
	book, err := t.Positions(c.Context)
	if err != nil {
		return fail(err)
	}
	return dashboard.WritePositions(a.stdout, book.Positions())
}

func (a *application) export(c *cli.Context) error {
	if _, err := positional(c, 0); err != nil {
		return err
	}
	t, err := a.connect(c)
	if err != nil {
		return err
	}
	orders, err := t.ListOrders(c.Context, true)
	if err != nil {
		return fail(err)
	}
	book, err := t.Positions(c.Context)
	if err != nil {
		return fail(err)
	}

	dir := c.String("dir")
	ps := store.NewParquetStore(dir)
	if err := ps.WriteOrders(c.Context, orders); err != nil {
		return fail(err)
	}
	if err := ps.WritePositions(c.Context, book); err != nil {
		return fail(err)
	}
	fmt.Fprintf(a.stdout, "Wrote %d orders and %d positions to %s\n", len(orders), book.Len(), dir)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// positional checks the positional argument count. It runs before any
// config or broker work so usage errors never touch credentials.
func positional(c *cli.Context, nargs int) ([]string, error) {
	if c.NArg() != nargs {
		msg := fmt.Sprintf("usage: %s %s", c.Command.HelpName, c.Command.ArgsUsage)
		return nil, cli.Exit(strings.TrimSpace(msg), 2)
	}
	return c.Args().Slice(), nil
}

// connect builds the trader, reporting failures as exit status 1.
func (a *application) connect(c *cli.Context) (*trader.Trader, error) {
	t, err := a.trader(c)
	if err != nil {
		return nil, fail(err)
	}
	return t, nil
}

func (a *application) printOrder(o domain.Order, err error) error {
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(a.stdout, o.Render())
	return nil
}

// fail turns an error into the user-facing message and exit status.
func fail(err error) error {
	return cli.Exit(err.Error(), 1)
}

func symbolArg(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func parseQuantity(s string) (int64, error) {
	q, err := strconv.ParseInt(s, 10, 64)
	if err != nil || q <= 0 {
		return 0, cli.Exit(fmt.Sprintf("invalid quantity %q: want a positive whole number", s), 2)
	}
	return q, nil
}

func parseDecimal(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, cli.Exit(fmt.Sprintf("invalid %s %q: want a positive number", name, s), 2)
	}
	return d, nil
}
