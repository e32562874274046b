package main

import (
	"github.com/gorustyt/navtile/server"
	"github.com/spf13/cobra"
)

func ServeCmd(e *env) *cobra.Command {
	var addr string
	c := &cobra.Command{
		Use:   "serve",
		Short: "serve navmesh queries over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			nav, store, err := e.openNavmesh(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer nav.Close()
			if addr == "" {
				addr = e.cfg.Server.Addr
			}
			srv := server.New(nav, store, server.Options{
				Query:          e.cfg.Query,
				AllowedOrigins: e.cfg.Server.AllowedOrigins,
				BorrowTimeout:  e.cfg.Server.BorrowTimeout(),
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return c
}
