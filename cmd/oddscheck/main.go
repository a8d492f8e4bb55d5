// Command oddscheck exercises the odds sources from the command line: it
// lists the aggregator's sports, fetches NFL odds, prints a moneyline table
// and a best-price comparison, and optionally runs the scrapers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/gridiron/internal/cache"
	"github.com/fortuna/gridiron/internal/compare"
	"github.com/fortuna/gridiron/internal/config"
	"github.com/fortuna/gridiron/internal/ingest"
	"github.com/fortuna/gridiron/internal/ingest/oddsapi"
	"github.com/fortuna/gridiron/internal/ingest/scrape"
	"github.com/fortuna/gridiron/internal/logging"
	"github.com/fortuna/gridiron/internal/odds"
	"github.com/fortuna/gridiron/internal/service"
)

var rule = strings.Repeat("=", 60)

func main() {
	configPath := flag.String("config", "", "optional config file")
	runScrapers := flag.Bool("scrape", false, "also run the sportsbook scrapers (needs chrome)")
	home := flag.String("home", "", "home team to compare (defaults to the first game)")
	away := flag.String("away", "", "away team to compare")
	games := flag.Int("games", 3, "number of games to print")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New("oddscheck", cfg.Server.Env, "warn")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := oddsapi.New(oddsapi.Config{
		APIKey:  cfg.OddsAPI.APIKey,
		BaseURL: cfg.OddsAPI.BaseURL,
		Regions: cfg.OddsAPI.Regions,
		Timeout: cfg.OddsAPI.Timeout,
	}, logger)

	fmt.Println(rule)
	fmt.Println("Odds API")
	fmt.Println(rule)

	if !cfg.APIConfigured() {
		fmt.Println("ODDS_API_KEY is not set.")
		fmt.Println("Get a key at https://the-odds-api.com/ and put ODDS_API_KEY=... in .env")
	} else {
		checkAggregator(ctx, client, cache.New(cfg.Cache.TTL), *games, *home, *away)
	}

	if *runScrapers {
		checkScrapers(ctx, cfg, logger)
	}
}

func checkAggregator(ctx context.Context, client *oddsapi.Client, c *cache.Cache, limit int, home, away string) {
	fmt.Println("\n1. Available sports")
	sports, err := client.ListSports(ctx)
	if err != nil {
		fmt.Printf("   error: %v\n", err)
	} else {
		fmt.Printf("   found %d sports\n", len(sports))
		for _, s := range sports {
			if s.Key == odds.SportNFL {
				fmt.Printf("   NFL: %s (active=%v)\n", s.Title, s.Active)
			}
		}
	}

	fmt.Println("\n2. NFL odds")
	svc := service.New(client, c, nil)
	res := svc.Fetch(ctx, nil, nil)
	if err := res.Err(); err != nil {
		fmt.Printf("   error: %s\n", res.Error)
		return
	}
	fmt.Printf("   fetched %d games\n", res.Count)

	for i, g := range res.Games {
		if i >= limit {
			break
		}
		printMoneyline(g)
	}

	if len(res.Games) == 0 {
		return
	}
	if home == "" && away == "" {
		home = res.Games[0].HomeTeam
	}

	fmt.Println("\n3. Best prices")
	cmp, err := svc.Compare(ctx, home, away)
	if err != nil {
		fmt.Printf("   error: %v\n", err)
		return
	}
	printComparison(cmp)
}

func printMoneyline(g odds.Game) {
	fmt.Printf("\n%s @ %s\n", g.AwayTeam, g.HomeTeam)
	fmt.Printf("Start: %s\n", g.CommenceTime.Local().Format(time.RFC1123))
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("%-20s %-15s %-15s\n", "Sportsbook", "Away", "Home")

	for i, b := range g.Bookmakers {
		if i >= 5 {
			break
		}
		line := b.Markets[odds.MarketMoneyline]
		fmt.Printf("%-20s %-15s %-15s\n", b.Title, price(line[odds.SideAway].Price), price(line[odds.SideHome].Price))
	}
}

func printComparison(r *compare.Result) {
	fmt.Printf("   %s @ %s, %d bookmakers compared\n", r.Game.AwayTeam, r.Game.HomeTeam, r.Bookmakers)
	rows := []struct {
		label string
		best  *compare.BestPrice
	}{
		{"moneyline away", r.BestOdds.Moneyline.Away},
		{"moneyline home", r.BestOdds.Moneyline.Home},
		{"spread away", r.BestOdds.Spread.Away},
		{"spread home", r.BestOdds.Spread.Home},
		{"total over", r.BestOdds.Total.Over},
		{"total under", r.BestOdds.Total.Under},
	}
	for _, row := range rows {
		if row.best == nil {
			fmt.Printf("   %-16s n/a\n", row.label)
			continue
		}
		point := ""
		if row.best.Point.Valid {
			point = row.best.Point.Value.String() + " "
		}
		fmt.Printf("   %-16s %s%+d (%.2f) at %s (%.1f%%)\n",
			row.label, point, row.best.Price, row.best.DecimalOdds, row.best.Bookmaker, row.best.ImpliedProbability)
	}
}

func checkScrapers(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	fmt.Println()
	fmt.Println(rule)
	fmt.Println("Sportsbook scrapers")
	fmt.Println(rule)

	browser := scrape.NewBrowser(scrape.BrowserConfig{
		Timeout:     cfg.Scrape.Timeout,
		MinInterval: cfg.Scrape.MinInterval,
	}, logger)
	defer browser.Close()

	for _, book := range scrape.Books {
		s := scrape.New(book, browser, logger)
		fmt.Printf("%s...\n", s.Title())

		var src ingest.Source = s
		games, err := src.Games(ctx, ingest.Query{})
		if err != nil {
			fmt.Printf("   error: %v\n", err)
			continue
		}
		fmt.Printf("   found %d games\n", len(games))
	}

	fmt.Println("\nScraping is unreliable against anti-bot measures; prefer the Odds API.")
}

func price(p odds.Price) string {
	if !p.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%+d", p.Value)
}
