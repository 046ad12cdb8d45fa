package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"gazeheat/internal/api"
	"gazeheat/internal/logging"
	"gazeheat/internal/preflight"
	"gazeheat/internal/recording"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP capture server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx, port, true)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to serve on (default: configured bind, random when 0)")
	return cmd
}

// runServe blocks until the command context is canceled or a signal
// arrives. Set strict to refuse starting when a required tool is missing.
func runServe(cmd *cobra.Command, ctx *commandContext, port int, strict bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port > 0 {
		cfg.Server.Bind = withPort(cfg.Server.Bind, port)
	}

	hub := logging.NewStreamHub(4096)
	rt, err := ctx.openRuntime(hub)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	lockPath := filepath.Join(cfg.Paths.LogDir, "gazeheat.lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another gazeheat server holds %s", lockPath)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	if err := checkReadiness(rt, strict); err != nil {
		return err
	}
	housekeeping(signalCtx, rt)

	var opts []api.Option
	opts = append(opts, api.WithStore(rt.store), api.WithLogHub(hub))
	if cfg.Recording.Enabled {
		recorder := recording.NewSession(recording.OptionsFromConfig(cfg), rt.tools, logger)
		defer recorder.Close()
		opts = append(opts, api.WithRecorder(recorder))
	}
	server := api.New(cfg, rt.manager, logger, opts...)
	addr, err := server.Listen()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server starting on %s:%d\n", localIP(), addr.Port)

	if cfg.Server.Advertise {
		ad, err := api.Advertise(cfg.Server.ServiceType, addr.Port, logger)
		if err != nil {
			logging.WarnWithContext(logger, "service advertisement failed", "mdns_register_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check multicast access on the local network"),
				logging.String(logging.FieldImpact, "clients must be pointed at the server address manually"),
			)
		} else {
			defer ad.Shutdown()
		}
	}

	err = server.Serve(signalCtx)
	logger.Info("gazeheat server shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func checkReadiness(rt *appRuntime, strict bool) error {
	results := preflight.RunAll(rt.cfg)
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Optional {
			logging.WarnWithContext(rt.logger, "optional dependency unavailable", "preflight_optional_missing",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldImpact, "recordings are captured without audio"),
			)
			continue
		}
		logging.ErrorWithContext(rt.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
		)
	}
	failed := preflight.Failed(results)
	if len(failed) == 0 || !strict {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	return fmt.Errorf("preflight failed: %s (run `gazeheat deps` for details)", strings.Join(names, ", "))
}

// housekeeping fails jobs orphaned by a previous process and prunes stale
// history and scratch files.
func housekeeping(ctx context.Context, rt *appRuntime) {
	if n, err := rt.store.FailRunning(ctx, "server restarted before the job finished"); err != nil {
		rt.logger.Warn("failed to reconcile interrupted jobs", logging.Error(err))
	} else if n > 0 {
		rt.logger.Info("marked interrupted jobs failed", logging.Int64("count", n))
	}

	days := rt.cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	if n, err := rt.store.Prune(ctx, cutoff); err != nil {
		rt.logger.Warn("failed to prune job history", logging.Error(err))
	} else if n > 0 {
		rt.logger.Info("pruned job history", logging.Int64("count", n))
	}
	workDir := rt.cfg.Paths.WorkDir
	if n := logging.PruneStale(rt.logger, cutoff,
		logging.PruneTarget{Dir: workDir, Pattern: "upload_*"},
		logging.PruneTarget{Dir: workDir, Pattern: "recording_*"},
		logging.PruneTarget{Dir: workDir, Pattern: "*_temp.mp4"},
		logging.PruneTarget{Dir: workDir, Pattern: "*_reduced.mp4"},
	); n > 0 {
		rt.logger.Info("pruned stale work files", logging.Int("count", n))
	}
}

func withPort(bind string, port int) string {
	host, _, err := net.SplitHostPort(bind)
	if err != nil || host == "" {
		host = "0.0.0.0"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// localIP reports the address other machines on the LAN would use. No
// packets are sent; dialing UDP only selects a route.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
