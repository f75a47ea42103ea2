// Binary bot runs the full pipeline: price stream -> crossover engine ->
// notification or auto paper trade, plus the HTTP API over the ledger.
package main

import (
	"context"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Juliocesar7881/Visor-Crypto/internal/config"
	"github.com/Juliocesar7881/Visor-Crypto/internal/execution"
	"github.com/Juliocesar7881/Visor-Crypto/internal/learning"
	"github.com/Juliocesar7881/Visor-Crypto/internal/metrics"
	"github.com/Juliocesar7881/Visor-Crypto/internal/notify"
	"github.com/Juliocesar7881/Visor-Crypto/internal/paper"
	"github.com/Juliocesar7881/Visor-Crypto/internal/risk"
	"github.com/Juliocesar7881/Visor-Crypto/internal/server"
	sig "github.com/Juliocesar7881/Visor-Crypto/internal/signal"
	"github.com/Juliocesar7881/Visor-Crypto/internal/strategy"
	"github.com/Juliocesar7881/Visor-Crypto/internal/stream"
	"github.com/Juliocesar7881/Visor-Crypto/internal/util"
)

// autoTradeUser is the ledger account automatic signal trades settle against.
const autoTradeUser = "demo_user"

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("VISOR_CONFIG")
	if cfgPath == "" {
		cfgPath = "internal/config/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := util.NewLogger("info")
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	reportStore, err := learning.NewStore(cfg.Paper.ReportsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("open report store")
	}
	defer reportStore.Close()
	reporter := learning.NewReporter(reportStore, log)
	defer reporter.Close()

	accounts := paper.NewService(cfg.Paper.InitialBalance)
	accounts.SetTerminalHook(func(userID string, position paper.Position) {
		reporter.Enqueue(userID, position)
	})

	engine := strategy.NewEngine(log)
	devices := notify.NewDeviceStore()
	notifier := notify.NewLogNotifier(log)
	exec := execution.NewExecutor(log)
	limits := risk.Limits{MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade}
	autoTrade := cfg.Signals.Mode == "auto"

	var streamOpts []stream.Option
	if cfg.Stream.BaseURL != "" {
		streamOpts = append(streamOpts, stream.WithBaseURL(cfg.Stream.BaseURL))
	}
	if cfg.Stream.BackoffSecs > 0 {
		streamOpts = append(streamOpts, stream.WithBackoff(time.Duration(cfg.Stream.BackoffSecs)*time.Second))
	}
	priceStream := stream.NewPriceStream(cfg.Stream.Symbols, log, streamOpts...)

	priceStream.AddCallback(func(t sig.Tick) {
		signal := engine.ProcessPrice(t.Symbol, t.Price)
		if signal == nil {
			return
		}
		decision := engine.Evaluate(signal)

		if autoTrade && decision.ShouldExecute {
			notional := decision.Amount * t.Price
			if !limits.Allow(notional) {
				log.Warn().Str("symbol", t.Symbol).Float64("notional", notional).Msg("auto trade over risk limit, skipped")
				return
			}
			side := execution.Buy
			if signal.Action == sig.ActionSell {
				side = execution.Sell
			}
			account := accounts.GetOrCreate(autoTradeUser)
			if _, err := account.ExecuteTrade(t.Symbol, side, decision.Amount, t.Price, signal.Strategy); err != nil {
				log.Warn().Err(err).Str("symbol", t.Symbol).Msg("auto paper trade rejected")
				return
			}
			_ = exec.Submit(execution.Order{Symbol: t.Symbol, Side: side, Qty: decision.Amount, Price: t.Price})
			return
		}

		registered := devices.All()
		if len(registered) == 0 {
			return
		}
		if err := notifier.SendTradeAlert(registered, signal); err != nil {
			log.Warn().Err(err).Str("symbol", t.Symbol).Msg("push delivery failed")
		}
	})

	priceStream.Start()
	defer priceStream.Stop()

	api := server.New(log, accounts, priceStream, engine, devices, reportStore)
	apiSrv := &http.Server{Addr: cfg.App.APIAddr, Handler: api.Handler()}
	go func() {
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api server stopped")
		}
	}()
	log.Info().Str("addr", cfg.App.APIAddr).Msg("api up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
}
