package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdslog "log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/hashcache"
	"github.com/unkn0wn-root/hashcache/codec"
	"github.com/unkn0wn-root/hashcache/connection"
	"github.com/unkn0wn-root/hashcache/genstore"
	asynchook "github.com/unkn0wn-root/hashcache/hooks/async"
	promhook "github.com/unkn0wn-root/hashcache/hooks/prom"
	hclogrus "github.com/unkn0wn-root/hashcache/log/logrus"
	hcslog "github.com/unkn0wn-root/hashcache/log/slog"
	hczap "github.com/unkn0wn-root/hashcache/log/zap"
	"github.com/unkn0wn-root/hashcache/provider"
	"github.com/unkn0wn-root/hashcache/provider/bigcache"
	"github.com/unkn0wn-root/hashcache/provider/gocache"
	"github.com/unkn0wn-root/hashcache/provider/lru"
	rediskv "github.com/unkn0wn-root/hashcache/provider/redis"
	"github.com/unkn0wn-root/hashcache/provider/ristretto"
	"github.com/unkn0wn-root/hashcache/sloghooks"
)

var errNoRedis = errors.New("driver has no redis connection")

// app is everything a command needs, built from Config.
type app struct {
	cfg     *Config
	log     hashcache.Logger
	hooks   hashcache.Hooks
	store   hashcache.Store
	hash    *hashcache.HashStore // nil for plain drivers
	ping    func(context.Context) error
	closers []func(context.Context) error
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := LoadConfig(cmd, envPrefix)
	if err != nil {
		return nil, err
	}
	return build(cmd.Context(), cfg, cmd.ErrOrStderr())
}

func build(ctx context.Context, cfg *Config, logOut io.Writer) (*app, error) {
	logger, err := buildLogger(cfg, logOut)
	if err != nil {
		return nil, err
	}
	cdc, err := buildCodec(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger}
	a.hooks = a.buildHooks(logOut)

	if err := a.openStore(ctx, cdc); err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	return a, nil
}

// Close runs the closers in reverse order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	return errors.Join(errs...)
}

func buildLogger(cfg *Config, w io.Writer) (hashcache.Logger, error) {
	switch cfg.LogBackend {
	case "zap":
		lvl, err := zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			lvl,
		)
		return hczap.New(zap.New(core)), nil
	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return nil, err
		}
		return hcslog.New(stdslog.New(stdslog.NewTextHandler(w, &stdslog.HandlerOptions{Level: lvl}))), nil
	default:
		lvl, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		l := logrus.New()
		l.SetOutput(w)
		l.SetLevel(lvl)
		return hclogrus.New(l), nil
	}
}

func (a *app) buildHooks(w io.Writer) hashcache.Hooks {
	var h hashcache.Hooks
	switch a.cfg.Hooks {
	case "slog":
		h = sloghooks.New(stdslog.New(stdslog.NewTextHandler(w, nil)), sloghooks.Options{})
	case "prometheus":
		reg := prometheus.NewRegistry()
		h = promhook.New(reg)
		if file := a.cfg.MetricsFile; file != "" {
			a.closers = append(a.closers, func(context.Context) error {
				return prometheus.WriteToTextfile(file, reg)
			})
		}
	default:
		return hashcache.NopHooks{}
	}
	if a.cfg.AsyncHooks {
		async := asynchook.New(h, 1, 1024)
		a.closers = append(a.closers, func(context.Context) error {
			async.Close()
			return nil
		})
		return async
	}
	return h
}

func buildCodec(cfg *Config) (codec.Codec[any], error) {
	var inner codec.Codec[any]
	switch cfg.Codec {
	case "msgpack":
		inner = codec.Msgpack[any]{}
	case "cbor":
		c, err := codec.NewCBOR[any](true)
		if err != nil {
			return nil, err
		}
		inner = c
	case "string":
		inner = codec.String{}
	default:
		inner = codec.JSON[any]{}
	}
	if cfg.MaxValueBytes > 0 {
		inner = codec.Limit[any]{Inner: inner, MaxDecode: cfg.MaxValueBytes}
	}
	return codec.Numeric{Inner: inner}, nil
}

func (a *app) openStore(ctx context.Context, cdc codec.Codec[any]) error {
	cfg := a.cfg
	switch cfg.Driver {
	case "redis", "redis-kv":
		client, err := connection.Open(ctx, cfg.RedisURL, connection.WithDB(cfg.Database))
		if err != nil {
			return err
		}
		reg := connection.NewRegistry()
		reg.Register(cfg.Connection, client)
		a.closers = append(a.closers, connection.Shutdown(reg))
		a.ping = connection.Healthcheck(client)

		if cfg.Driver == "redis" {
			policy := hashcache.FieldTTL
			if cfg.TTLPolicy == "namespace" {
				policy = hashcache.NamespaceTTL
			}
			hs, err := hashcache.NewHashStore(hashcache.HashOptions{
				Connections: reg,
				Connection:  cfg.Connection,
				Prefix:      cfg.Prefix,
				Codec:       cdc,
				TTLPolicy:   policy,
				Logger:      a.log,
				Hooks:       a.hooks,
			})
			if err != nil {
				return err
			}
			a.store, a.hash = hs, hs
			return nil
		}

		p, err := rediskv.New(rediskv.Config{Client: client})
		if err != nil {
			return err
		}
		// generations must outlive the process, so they live next to the data
		gens := genstore.NewRedisGenStore(genstore.RedisConfig{Client: client, Prefix: cfg.Prefix})
		return a.openPlain(p, gens, cdc)

	case "ristretto":
		p, err := ristretto.New(ristretto.Config{
			NumCounters: 1e5,
			MaxCost:     64 << 20,
			BufferItems: 64,
			Synchronous: true,
		})
		if err != nil {
			return err
		}
		return a.openPlain(p, nil, cdc)

	case "bigcache":
		p, err := bigcache.New(ctx, bigcache.Config{LifeWindow: 10 * time.Minute})
		if err != nil {
			return err
		}
		return a.openPlain(p, nil, cdc)

	case "lru":
		p, err := lru.New(lru.Config{})
		if err != nil {
			return err
		}
		return a.openPlain(p, nil, cdc)

	case "memory":
		return a.openPlain(gocache.New(gocache.Config{}), nil, cdc)
	}
	return fmt.Errorf("unknown driver %q", cfg.Driver)
}

func (a *app) openPlain(p provider.Provider, gens genstore.GenStore, cdc codec.Codec[any]) error {
	ps, err := hashcache.NewPlainStore(hashcache.PlainOptions{
		Provider: p,
		GenStore: gens,
		Codec:    cdc,
		Prefix:   a.cfg.Prefix,
		ComputeSetCost: func(_ string, raw []byte) int64 {
			return int64(len(raw))
		},
		Logger: a.log,
		Hooks:  a.hooks,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, ps.Close)
	a.store = ps
	return nil
}

// splitNamespace turns "general:users" into ("general", "users"). A bare
// location gets the default base.
func splitNamespace(ns string) (base, location string) {
	if b, l, ok := strings.Cut(ns, ":"); ok {
		return b, l
	}
	return hashcache.DefaultBaseLocation, ns
}

// facadeOptions builds the facade options for the --namespace flag.
func (a *app) facadeOptions(cmd *cobra.Command) (hashcache.FacadeOptions, error) {
	ns, _ := cmd.Flags().GetString("namespace")
	if ns == "" {
		return hashcache.FacadeOptions{}, hashcache.ErrNamespaceRequired
	}
	bypass, _ := cmd.Flags().GetBool("clear-cache")
	base, location := splitNamespace(ns)
	return hashcache.FacadeOptions{
		Store:        a.store,
		Location:     location,
		BaseLocation: base,
		Bypass:       bypass || !a.cfg.Enabled,
		Logger:       a.log,
		Hooks:        a.hooks,
	}, nil
}

func (a *app) cache(cmd *cobra.Command) (*hashcache.Namespaced, error) {
	opts, err := a.facadeOptions(cmd)
	if err != nil {
		return nil, err
	}
	return hashcache.NewNamespaced(opts)
}

func (a *app) critical(cmd *cobra.Command) (*hashcache.Critical, error) {
	opts, err := a.facadeOptions(cmd)
	if err != nil {
		return nil, err
	}
	return hashcache.NewCritical(opts)
}
