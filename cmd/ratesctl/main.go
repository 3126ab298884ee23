// ratesctl клиент командной строки к gRPC API курсов.
package main

import (
	"fmt"
	"os"
	"time"

	"gw-currency-rates/internal/engine"
	ratesgrpc "gw-currency-rates/internal/grpc"
	"gw-currency-rates/internal/logger"
)

func main() {
	if err := newRootCmd(dialRates).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// dialRates подключается к сервису курсов по gRPC
func dialRates(address string, timeout time.Duration, logLevel string) (engine.Querier, func() error, error) {
	client, err := ratesgrpc.NewRatesClient(address, timeout, logger.NewWithOutput(logLevel, os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}
