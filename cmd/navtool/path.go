package main

import (
	"errors"
	"fmt"

	"github.com/gorustyt/navtile/detour"
	"github.com/spf13/cobra"
)

func PathCmd(e *env) *cobra.Command {
	var (
		from, to string
		lenient  bool
	)
	c := &cobra.Command{
		Use:   "path",
		Short: "find a path between two points on the stored navmesh",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseVec3(from)
			if err != nil {
				return err
			}
			end, err := parseVec3(to)
			if err != nil {
				return err
			}
			nav, store, err := e.openNavmesh(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			defer nav.Close()

			settings := e.cfg.Query
			if lenient {
				settings = detour.LenientQuerySettings()
			}
			q, ok := nav.QueryPool.Pop()
			if !ok {
				return errors.New("no query available")
			}
			defer nav.QueryPool.Push(q)
			n := q.FindPath(settings, start, end)
			if n == 0 {
				return fmt.Errorf("no path from %v to %v", start, end)
			}
			for _, p := range q.Path(n) {
				fmt.Fprintf(cmd.OutOrStdout(), "%.3f %.3f %.3f\n", p[0], p[1], p[2])
			}
			return nil
		},
	}
	c.Flags().StringVar(&from, "from", "", "start point x,y,z")
	c.Flags().StringVar(&to, "to", "", "end point x,y,z")
	c.Flags().BoolVar(&lenient, "lenient", false, "search a wider area around the endpoints")
	c.MarkFlagRequired("from")
	c.MarkFlagRequired("to")
	return c
}
