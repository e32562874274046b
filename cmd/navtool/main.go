package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/gorustyt/navtile/common"
	"github.com/gorustyt/navtile/common/logger"
	"github.com/gorustyt/navtile/config"
	"github.com/gorustyt/navtile/detour"
	"github.com/gorustyt/navtile/native"
	_ "github.com/gorustyt/navtile/native/ainav"
	"github.com/gorustyt/navtile/native/softnav"
	"github.com/gorustyt/navtile/tile_store"
	"github.com/spf13/cobra"
)

var VERSION = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is the state shared by every subcommand once the config is loaded.
type env struct {
	configFile string
	storePath  string
	logLevel   string

	cfg    *config.Config
	driver native.Driver
}

func NewRootCmd() *cobra.Command {
	e := &env{}
	c := &cobra.Command{
		Use:          "navtool",
		Short:        "build, store and query tiled navmeshes",
		Version:      VERSION,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.CloseLogger()
		},
	}
	c.PersistentFlags().StringVar(&e.configFile, "config", "", "config file (.hjson, .json, .yaml)")
	c.PersistentFlags().StringVar(&e.storePath, "store", "", "tile store path, overrides the config")
	c.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "log level, overrides the config")
	c.AddCommand(BuildCmd(e), InspectCmd(e), ServeCmd(e), PathCmd(e), DriversCmd())
	return c
}

func (e *env) load() error {
	var err error
	if e.configFile == "" {
		e.cfg = config.Default()
	} else if e.cfg, err = config.Load(e.configFile); err != nil {
		return err
	}
	if e.cfg.Logger == nil {
		e.cfg.Logger = logger.DefaultConfig()
	}
	if e.storePath != "" {
		e.cfg.Store.Path = e.storePath
	}
	if e.logLevel != "" {
		e.cfg.Logger.Level = e.logLevel
	}
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	if err := logger.InitLogger(e.cfg.Logger); err != nil {
		return err
	}
	if e.cfg.Driver == "" {
		e.cfg.Driver = softnav.DriverName
	}
	e.driver, err = native.Open(e.cfg.Driver)
	return err
}

func (e *env) openStore() (tile_store.Store, error) {
	return tile_store.Open(e.cfg.Store.Kind, e.cfg.Store.Path)
}

// openNavmesh creates a navmesh and loads every stored tile into it. The
// caller closes both.
func (e *env) openNavmesh(ctx context.Context) (*detour.Navmesh, tile_store.Store, error) {
	store, err := e.openStore()
	if err != nil {
		return nil, nil, err
	}
	nav, err := detour.NewNavmesh(e.driver, e.cfg.NavmeshSettings())
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	n, err := tile_store.LoadAll(ctx, store, nav)
	if err != nil {
		nav.Close()
		store.Close()
		return nil, nil, err
	}
	logger.Info("loaded %v tiles from %v store %v", n, e.cfg.Store.Kind, e.cfg.Store.Path)
	return nav, store, nil
}

// parseVec3 reads "x,y,z".
func parseVec3(s string) (common.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return common.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v common.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return common.Vec3{}, fmt.Errorf("parse %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func DriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "list the registered navigation engines",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range native.Drivers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
