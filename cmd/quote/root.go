package quote

import (
	"context"
	"fmt"
	"github.com/freerahn/stockblog/cmd/util"
	"github.com/freerahn/stockblog/lib/quote"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/transport/http"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"time"
)

// QuoteCmd prints the price history of a stock
var QuoteCmd = &cobra.Command{
	Use:   "quote [symbol]",
	Short: "Print the daily closing prices of a KOSPI stock",
	Long:  "Print the daily closing prices of a KOSPI stock (e.g. 079160). If the quote API is unreachable a simulated series is printed.",
	Args:  cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := util.BindCommandFlags(cmd); err != nil {
			return err
		}
		return common.InitLoggers(viper.GetString("log-level"))
	},
	RunE: run,
}

func init() {
	cobra.OnInitialize(util.InitConfig)

	QuoteCmd.Flags().String("period", string(quote.Period3M), util.WrapString("Period to print (1d, 1w, 3m, 1y, 3y)"))
	QuoteCmd.Flags().String("quote-endpoint", quote.DefaultEndpoint, util.WrapString("Base URL of the chart API"))
	QuoteCmd.Flags().Duration("quote-timeout", 10*time.Second, util.WrapString("Timeout of the quote request"))
}

func run(cmd *cobra.Command, args []string) error {
	period, err := quote.ParsePeriod(viper.GetString("period"))
	if err != nil {
		return err
	}

	config := common.ClientConfig{
		Endpoints:     []string{viper.GetString("quote-endpoint")},
		TimeoutSecond: int(viper.GetDuration("quote-timeout") / time.Second),
		RetryCount:    1,
	}
	client, err := quote.NewClient(config, http.NewHttpClientTransport())
	if err != nil {
		return err
	}

	// short periods only need the short history
	r := quote.Range3Y
	if period == quote.Period1D || period == quote.Period1W || period == quote.Period3M {
		r = quote.Range3M
	}

	points, simulated := client.Series(context.Background(), args[0], r)
	points = quote.Filter(points, period, time.Now())
	if simulated {
		fmt.Println("quote API unavailable, showing simulated prices")
	}
	for _, p := range points {
		fmt.Printf("%s  %8d\n", p.Date, p.Price)
	}
	if len(points) == 0 {
		fmt.Println("no prices in this period")
	}
	return nil
}
