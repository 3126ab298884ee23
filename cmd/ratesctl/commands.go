package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gw-currency-rates/internal/apperrors"
	"gw-currency-rates/internal/config"
	"gw-currency-rates/internal/datekey"
	"gw-currency-rates/internal/engine"
	"gw-currency-rates/pkg"
)

const defaultHistoryDays = 30

// dialFunc открывает подключение к сервису курсов
type dialFunc func(address string, timeout time.Duration, logLevel string) (engine.Querier, func() error, error)

// cli состояние одного запуска ratesctl
type cli struct {
	dial       dialFunc
	configPath string
	address    string
	timeout    time.Duration
	logLevel   string
	asJSON     bool
	days       int

	querier engine.Querier
	closeFn func() error
}

func newRootCmd(dial dialFunc) *cobra.Command {
	c := &cli{dial: dial}

	rootCmd := &cobra.Command{
		Use:   "ratesctl",
		Short: "Query central bank exchange rates over gRPC",
		Long: `ratesctl talks to the gw-rates-api gRPC endpoint and prints
current rates, history windows and conversions.`,
		SilenceUsage:       true,
		PersistentPreRunE:  c.connect,
		PersistentPostRunE: c.disconnect,
	}

	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&c.address, "addr", "", "gRPC address of the rates service (default from RATES_API_ADDRESS)")
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 0, "Per-request timeout (default from RATES_API_TIMEOUT)")
	rootCmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Client log level")
	rootCmd.PersistentFlags().BoolVar(&c.asJSON, "json", false, "Print results as JSON")

	historyCmd := &cobra.Command{
		Use:   "history CODE",
		Short: "Show the rate series for the last N days",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runHistory,
	}
	historyCmd.Flags().IntVar(&c.days, "days", defaultHistoryDays, "Window length in days")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "current CODE",
			Short: "Show the latest rate with window statistics",
			Args:  cobra.ExactArgs(1),
			RunE:  c.runCurrent,
		},
		&cobra.Command{
			Use:   "currencies",
			Short: "List currencies published on the latest date",
			Args:  cobra.NoArgs,
			RunE:  c.runCurrencies,
		},
		historyCmd,
		&cobra.Command{
			Use:   "range CODE START END",
			Short: "Show the rate series between two dates (dd/mm/yyyy)",
			Args:  cobra.ExactArgs(3),
			RunE:  c.runRange,
		},
		&cobra.Command{
			Use:   "convert AMOUNT FROM TO",
			Short: "Convert an amount between two currencies",
			Args:  cobra.ExactArgs(3),
			RunE:  c.runConvert,
		},
	)

	return rootCmd
}

// connect дополняет флаги значениями из конфигурации и подключается к сервису
func (c *cli) connect(cmd *cobra.Command, args []string) error {
	if c.address == "" || c.timeout == 0 {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if c.address == "" {
			c.address = cfg.RatesAPI.Address
		}
		if c.timeout == 0 {
			c.timeout = cfg.RatesAPI.Timeout
		}
	}

	querier, closeFn, err := c.dial(c.address, c.timeout, c.logLevel)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.address, err)
	}
	c.querier = querier
	c.closeFn = closeFn
	return nil
}

func (c *cli) disconnect(cmd *cobra.Command, args []string) error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

func (c *cli) runCurrent(cmd *cobra.Command, args []string) error {
	rate, err := c.querier.GetCurrent(cmd.Context(), args[0])
	if err != nil {
		return describe(err)
	}
	if c.asJSON {
		return writeJSON(cmd.OutOrStdout(), rate)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) on %s\n", rate.Code, rate.Name, rate.Date.Display())
	fmt.Fprintf(out, "  rate:       %s\n", pkg.FormatRate(rate.Rate))
	fmt.Fprintf(out, "  daily:      %s\n", pkg.FormatChange(rate.DailyChange))
	fmt.Fprintf(out, "  7d high:    %s\n", pkg.FormatRate(rate.Stats.High7d))
	fmt.Fprintf(out, "  7d low:     %s\n", pkg.FormatRate(rate.Stats.Low7d))
	fmt.Fprintf(out, "  14d change: %s\n", pkg.FormatChange(rate.Stats.Change14d))
	fmt.Fprintf(out, "  30d change: %s\n", pkg.FormatChange(rate.Stats.Change30d))
	return nil
}

func (c *cli) runCurrencies(cmd *cobra.Command, args []string) error {
	currencies, err := c.querier.ListCurrencies(cmd.Context())
	if err != nil {
		return describe(err)
	}
	if c.asJSON {
		return writeJSON(cmd.OutOrStdout(), currencies)
	}

	for _, currency := range currencies {
		fmt.Fprintf(cmd.OutOrStdout(), "%-4s %s\n", currency.Code, currency.Name)
	}
	return nil
}

func (c *cli) runHistory(cmd *cobra.Command, args []string) error {
	points, err := c.querier.GetHistory(cmd.Context(), args[0], c.days)
	if err != nil {
		return describe(err)
	}
	return c.printSeries(cmd.OutOrStdout(), points)
}

func (c *cli) runRange(cmd *cobra.Command, args []string) error {
	start, err := datekey.ParseDisplay(args[1])
	if err != nil {
		return describe(err)
	}
	end, err := datekey.ParseDisplay(args[2])
	if err != nil {
		return describe(err)
	}

	points, err := c.querier.GetHistoryRange(cmd.Context(), args[0], start, end)
	if err != nil {
		return describe(err)
	}
	return c.printSeries(cmd.OutOrStdout(), points)
}

func (c *cli) runConvert(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return describe(apperrors.NewFormatError("amount %q is not a number", args[0]))
	}

	result, err := c.querier.ConvertAmount(cmd.Context(), args[1], args[2], amount)
	if err != nil {
		return describe(err)
	}
	if c.asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s %s (rate %s on %s)\n",
		strconv.FormatFloat(result.Amount, 'f', -1, 64), result.From,
		pkg.FormatRate(result.Result), result.To,
		pkg.FormatRate(result.Rate), result.Date.Display())
	return nil
}

func (c *cli) printSeries(out io.Writer, points []engine.HistoryPoint) error {
	if c.asJSON {
		return writeJSON(out, points)
	}
	for _, point := range points {
		fmt.Fprintf(out, "%s  %s\n", point.Date.Display(), pkg.FormatRate(point.Rate))
	}
	return nil
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// describe добавляет к ошибке ее категорию
func describe(err error) error {
	return fmt.Errorf("%s: %w", apperrors.KindOf(err), err)
}
