package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	config "agrinova-api/configs"
	"agrinova-api/internal/app"
	"agrinova-api/internal/logging"
	"agrinova-api/pkg/models"
	"agrinova-api/pkg/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "agrinova",
		Short:         "AgriNova360 farm assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRecommendCommand(),
		newAskCommand(),
		newProductsCommand(),
		newSensorsCommand(),
		newServeCommand(),
	)
	return root
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newRecommendCommand creates the 'recommend' command
func newRecommendCommand() *cobra.Command {
	var (
		soil     string
		temp     float64
		humidity float64
		scored   bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend crops for the given field conditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("temperature") || !cmd.Flags().Changed("humidity") || soil == "" {
				return fmt.Errorf("--soil, --temperature and --humidity are required")
			}
			if !finite(temp) || !finite(humidity) {
				return fmt.Errorf("--temperature and --humidity must be finite numbers")
			}
			fc := models.FieldConditions{SoilType: soil, TemperatureC: temp, HumidityPct: humidity}
			r := services.NewCropRecommender()
			out := cmd.OutOrStdout()

			if scored {
				results := r.Score(fc)
				if asJSON {
					return writeJSON(out, results)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CROP\tSCORE\tSUITABILITY\tYIELD")
				for _, s := range results {
					fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", s.Crop, s.Score, s.Suitability, s.Yield)
				}
				return tw.Flush()
			}

			recs := r.Recommend(fc)
			if asJSON {
				return writeJSON(out, recs)
			}
			for _, rec := range recs {
				fmt.Fprintf(out, "%s %s  [%s, yield %s]\n    %s\n", rec.Icon, rec.Name, rec.Suitability, rec.Yield, rec.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&soil, "soil", "", "Soil type (Loamy, Clay, Sandy, Silty)")
	cmd.Flags().Float64Var(&temp, "temperature", 0, "Temperature in °C")
	cmd.Flags().Float64Var(&humidity, "humidity", 0, "Relative humidity in %")
	cmd.Flags().BoolVar(&scored, "scored", false, "Use the weighted suitability score")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// newAskCommand creates the 'ask' command
func newAskCommand() *cobra.Command {
	var persona string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the farming assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if strings.TrimSpace(text) == "" {
				return services.ErrEmptyMessage
			}
			p, err := services.ParsePersona(persona)
			if err != nil {
				return err
			}
			reply, _, err := services.NewChatbotService().Respond(p, text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&persona, "persona", string(services.PersonaCustomer), "Response table: customer or regional")
	return cmd
}

// newProductsCommand creates the 'products' command
func newProductsCommand() *cobra.Command {
	var (
		q      models.ProductQuery
		export string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Search the marketplace catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			market, err := services.NewMarketplaceService(cmd.Context(), nil, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if export != "" {
				f, err := os.Create(export)
				if err != nil {
					return err
				}
				products := services.FilterProducts(market.All(), q)
				if err := services.WriteProductsXLSX(f, products); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(out, "exported %d products to %s\n", len(products), export)
				return nil
			}

			page := market.Query(q)
			if asJSON {
				return writeJSON(out, page)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tRATING\tFARMER")
			for _, p := range page.Products {
				fmt.Fprintf(tw, "%d\t%s %s\t%s\t%.2f\t%.1f\t%s\n", p.ID, p.Image, p.Name, p.Category, p.Price, p.Rating, p.Farmer)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "page %d/%d, %d products\n", page.Page, page.Pages, page.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Search, "search", "", "Name contains (case-insensitive)")
	cmd.Flags().StringVar(&q.Category, "category", "all", "Category filter")
	cmd.Flags().StringVar(&q.PriceRange, "price", "all", "Price range: under-30, 30-50, 50-100, over-100")
	cmd.Flags().StringVar(&q.SortBy, "sort", "name", "Sort: name, price-low, price-high, rating")
	cmd.Flags().IntVar(&q.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&q.Limit, "limit", services.DefaultProductLimit, "Products per page")
	cmd.Flags().StringVar(&export, "export", "", "Write the matching products to an .xlsx file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

// newSensorsCommand creates the 'sensors' command
func newSensorsCommand() *cobra.Command {
	var (
		ticks int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "sensors",
		Short: "Show the simulated field sensors",
		RunE: func(cmd *cobra.Command, args []string) error {
			feed := services.NewFeed(services.FeedOptions{Seed: seed})
			for i := 0; i < ticks; i++ {
				feed.Tick(cmd.Context())
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tLOCATION\tTEMP\tHUMIDITY\tSOIL\tWATER\tSTATUS")
			for _, s := range feed.Snapshot() {
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%s\n", s.ID, s.Location, s.Temperature, s.Humidity, s.SoilMoisture, s.WaterUsage, s.Status)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			sum := feed.Summary()
			fmt.Fprintf(out, "water %.0fL, avg soil %.1f%%, avg temp %.1f°C, %d active, %d warning\n",
				sum.TotalWaterUsage, sum.AvgSoilMoisture, sum.AvgTemperature, sum.ActiveSensors, sum.WarningSensors)
			return nil
		},
	}

	cmd.Flags().IntVar(&ticks, "ticks", 0, "Random-walk steps to apply before printing")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	return cmd
}

// newServeCommand creates the 'serve' command
func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the sensor feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			logger, err := logging.New(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Warn("close", zap.Error(err))
				}
			}()
			return a.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (overrides PORT)")
	return cmd
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
