package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/hashcache"
)

// withApp wires the app for the duration of one command run.
func withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(context.WithoutCancel(cmd.Context())); cerr != nil {
				a.log.Warn("shutdown failed", hashcache.Fields{"err": cerr})
			}
		}()
		return fn(cmd, a, args)
	}
}

// parseValue reads a command line value as JSON, falling back to the raw
// string: 42 -> number, '{"a":1}' -> map, hello -> "hello".
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil && v != nil {
		return v
	}
	return s
}

func printValue(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "print a cached value",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var (
				v     any
				found bool
				err   error
			)
			if critical, _ := cmd.Flags().GetBool("critical"); critical {
				c, cerr := a.critical(cmd)
				if cerr != nil {
					return cerr
				}
				v, found, err = c.Get(cmd.Context(), args[0])
			} else {
				n, nerr := a.cache(cmd)
				if nerr != nil {
					return nerr
				}
				v, found, err = n.Get(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%q: not found", args[0])
			}
			return printValue(cmd.OutOrStdout(), v)
		}),
	}
	cmd.Flags().Bool("critical", false, "Read through a critical cache (logs an error on a miss)")
	return cmd
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "store a value; VALUE is parsed as JSON when possible",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			return n.Put(cmd.Context(), args[0], parseValue(args[1]), ttl)
		}),
	}
	cmd.Flags().Duration("ttl", 0, "Expiry (eg 10m); 0 stores forever")
	return cmd
}

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add KEY VALUE",
		Short: "store a value only if the key does not exist; prints true when created",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			created, err := n.Add(cmd.Context(), args[0], parseValue(args[1]), ttl)
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), created)
		}),
	}
	cmd.Flags().Duration("ttl", 0, "Expiry (eg 10m); 0 stores forever")
	return cmd
}

func newIncrCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incr KEY",
		Short: "add to an integer value and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			by, _ := cmd.Flags().GetInt64("by")
			v, err := n.Increment(cmd.Context(), args[0], by)
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), v)
		}),
	}
	cmd.Flags().Int64("by", 1, "Delta; negative to decrement")
	return cmd
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget KEY",
		Short: "delete one entry",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			return n.Delete(cmd.Context(), args[0])
		}),
	}
}

func newFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "drop every entry of the namespace",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			_, err = n.Clear(cmd.Context())
			return err
		}),
	}
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "print every entry of the namespace",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			all, err := n.All(cmd.Context())
			if err != nil {
				return err
			}
			return printValue(cmd.OutOrStdout(), all)
		}),
	}
}
