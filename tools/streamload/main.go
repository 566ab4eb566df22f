// Command streamload opens many market-stream subscribers against a running
// exchange and optionally fires small buy/sell orders while they listen.
package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type counters struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	ticks       atomic.Int64
	orders      atomic.Int64
	rejects     atomic.Int64
}

func main() {
	var (
		baseURL     string
		connections int
		duration    time.Duration
		rampUp      time.Duration
		orderEvery  time.Duration
		instrument  string
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "exchange base URL")
	flag.IntVar(&connections, "conns", 500, "concurrent market stream subscribers")
	flag.DurationVar(&duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", time.Second, "spread subscriber starts across this window")
	flag.DurationVar(&orderEvery, "orders", 0, "place a 1-share order every interval (0 disables)")
	flag.StringVar(&instrument, "instrument", "1", "instrument traded by the order loop")
	flag.Parse()

	if connections <= 0 {
		log.Fatalf("invalid conns: %d", connections)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 10,
			MaxIdleConnsPerHost: connections + 10,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting stream load",
		zap.String("url", baseURL),
		zap.Int("conns", connections),
		zap.Duration("dur", duration),
		zap.Duration("orders", orderEvery))

	var c counters
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	interval := rampUp / time.Duration(connections)
	g.Go(func() error {
		for i := 0; i < connections; i++ {
			if i > 0 && interval > 0 {
				select {
				case <-gctx.Done():
					return nil
				case <-time.After(interval):
				}
			}
			g.Go(func() error {
				subscribe(gctx, client, baseURL+"/api/market/stream", &c)
				return nil
			})
		}
		return nil
	})

	if orderEvery > 0 {
		g.Go(func() error {
			placeOrders(gctx, client, baseURL+"/api/orders", instrument, orderEvery, &c)
			return nil
		})
	}

	g.Go(func() error {
		report := time.NewTicker(5 * time.Second)
		defer report.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-report.C:
				logger.Info("status",
					zap.Int64("connected", c.connected.Load()),
					zap.Int64("connect_errs", c.connectErrs.Load()),
					zap.Int64("stream_errs", c.streamErrs.Load()),
					zap.Int64("ticks", c.ticks.Load()),
					zap.Int64("orders", c.orders.Load()),
					zap.Int64("rejects", c.rejects.Load()),
					zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))
			}
		}
	})

	_ = g.Wait()

	elapsed := max(time.Since(start), time.Millisecond)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d ticks=%d orders=%d rejects=%d elapsed=%s ticks/s=%.2f\n",
		c.connected.Load(),
		c.connectErrs.Load(),
		c.streamErrs.Load(),
		c.ticks.Load(),
		c.orders.Load(),
		c.rejects.Load(),
		elapsed.Truncate(time.Millisecond),
		float64(c.ticks.Load())/elapsed.Seconds(),
	)
}

func subscribe(ctx context.Context, client *http.Client, url string, c *counters) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		c.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.connectErrs.Add(1)
		return
	}

	c.connected.Add(1)
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				c.streamErrs.Add(1)
			}
			return
		}
		if strings.HasPrefix(line, "event: tick") {
			c.ticks.Add(1)
		}
	}
}

// placeOrders sends one-share orders on a random side.
func placeOrders(ctx context.Context, client *http.Client, url, instrument string, every time.Duration, c *counters) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		side := "BUY"
		if rand.IntN(2) == 0 {
			side = "SELL"
		}
		body := fmt.Sprintf(`{"instrumentId":%q,"side":%q,"amount":1}`, instrument, side)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
		if err != nil {
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()

		c.orders.Add(1)
		if resp.StatusCode != http.StatusOK {
			c.rejects.Add(1)
		}
	}
}
