// node.go - Devnet node: gRPC service, ops HTTP surface, block production and snapshots.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"shieldxfer/internal/config"
	"shieldxfer/internal/ledger"
	"shieldxfer/internal/logging"
	"shieldxfer/internal/monitor"
	"shieldxfer/internal/rpc"
)

const version = "0.1.0"

// Node runs one devnet ledger.
type Node struct {
	cfg     *config.NodeConfig
	log     *logging.Logger
	ledger  *ledger.Ledger
	metrics *monitor.Metrics
	health  *monitor.Health
}

// NewNode restores the ledger from the snapshot when there is one and
// otherwise starts from genesis.
func NewNode(cfg *config.NodeConfig, log *logging.Logger) (*Node, error) {
	l, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	l.SetMaxMempool(cfg.Genesis.MaxMempool)

	n := &Node{
		cfg:     cfg,
		log:     log,
		ledger:  l,
		metrics: monitor.NewMetrics(),
		health:  monitor.NewHealth(version),
	}
	n.health.Register("ledger", func() error {
		if l.ChainID() != cfg.Genesis.ChainID {
			return fmt.Errorf("chain id %s, configured %s", l.ChainID(), cfg.Genesis.ChainID)
		}
		return nil
	})
	n.health.Register("snapshots", nil)
	return n, nil
}

func openLedger(cfg *config.NodeConfig) (*ledger.Ledger, error) {
	if cfg.SnapshotPath != "" {
		l, err := ledger.LoadFromFile(cfg.SnapshotPath)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return ledger.New(cfg.Genesis)
}

// Run listens on the configured addresses and serves until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	grpcLis, err := net.Listen("tcp", n.cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	var httpLis net.Listener
	if n.cfg.HTTPAddr != "" {
		if httpLis, err = net.Listen("tcp", n.cfg.HTTPAddr); err != nil {
			grpcLis.Close()
			return fmt.Errorf("listen http: %w", err)
		}
	}
	return n.Serve(ctx, grpcLis, httpLis)
}

// Serve runs every node loop on the given listeners. httpLis may be nil. A
// final snapshot is written on the way out.
func (n *Node) Serve(ctx context.Context, grpcLis, httpLis net.Listener) error {
	limiter := monitor.NewPeerRateLimiter(n.cfg.RateLimitBurst, n.cfg.RateLimitRefill, n.cfg.RateLimitPeriod())
	gs := grpc.NewServer(rpc.Interceptors(limiter, n.metrics, n.log.Logger))
	rpc.NewGRPCServer(n.ledger, n.metrics, n.log.Logger).Register(gs)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n.log.Info().Str("addr", grpcLis.Addr().String()).Msg("grpc listening")
		return gs.Serve(grpcLis)
	})

	var httpSrv *http.Server
	if httpLis != nil {
		httpSrv = &http.Server{
			Handler:           monitor.NewRouter(n.health, n.metrics, n.log.Logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			n.log.Info().Str("addr", httpLis.Addr().String()).Msg("http listening")
			if err := httpSrv.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		n.every(ctx, n.cfg.BlockInterval(), n.commit)
		return nil
	})
	if n.cfg.SnapshotPath != "" {
		g.Go(func() error {
			n.every(ctx, n.cfg.SnapshotInterval(), n.snapshot)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		n.log.Info().Msg("shutting down")
		gs.GracefulStop()
		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		}
		return nil
	})

	err := g.Wait()
	if n.cfg.SnapshotPath != "" {
		n.snapshot()
	}
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

func (n *Node) every(ctx context.Context, d time.Duration, f func()) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f()
		}
	}
}

// commit executes the mempool as a block. Empty blocks are still produced so
// the epoch advances.
func (n *Node) commit() {
	results := n.ledger.Commit()
	height := n.ledger.Height()
	n.metrics.RecordBlock(height, len(results), n.ledger.MempoolSize())
	for _, r := range results {
		n.metrics.RecordTx(r.Code)
		n.log.Info().
			Uint64("height", r.Height).
			Str("hash", r.Hash).
			Str("code", r.Code.String()).
			Msg("transaction committed")
	}
	if len(results) > 0 {
		n.log.Audit("block_committed", map[string]any{"height": height, "txs": len(results)})
	}
}

func (n *Node) snapshot() {
	start := time.Now()
	if err := n.ledger.SaveToFile(n.cfg.SnapshotPath); err != nil {
		n.log.Error().Err(err).Str("path", n.cfg.SnapshotPath).Msg("snapshot failed")
		n.health.Update("snapshots", monitor.Degraded, err.Error())
		return
	}
	n.metrics.RecordHistogram(monitor.MetricSnapshotTime, time.Since(start).Seconds(), nil)
	n.health.Update("snapshots", monitor.Healthy, "ok")
}
