package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newNamespacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces [PATTERN]",
		Short: "list namespace hashes under the prefix (eg 'general:*')",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if a.hash == nil {
				return fmt.Errorf("namespaces: driver %q keeps no namespace hashes", a.cfg.Driver)
			}
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}
			names, err := a.hash.Namespaces(cmd.Context(), pattern)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		}),
	}
}

func newLockCmd() *cobra.Command {
	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "acquire or release a distributed lock in the namespace",
	}

	acquire := &cobra.Command{
		Use:   "acquire NAME",
		Short: "take the lock and print the owner token",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")
			owner, _ := cmd.Flags().GetString("owner")
			wait, _ := cmd.Flags().GetDuration("wait")

			l, err := n.Lock(args[0], ttl, owner)
			if err != nil {
				return err
			}
			if wait > 0 {
				if err := l.Block(cmd.Context(), wait); err != nil {
					return err
				}
			} else {
				ok, err := l.Acquire(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("lock %q is held by another owner", args[0])
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), l.Owner())
			return nil
		}),
	}
	acquire.Flags().Duration("ttl", time.Minute, "Lock expiry; 0 never expires")
	acquire.Flags().String("owner", "", "Owner token; random when empty")
	acquire.Flags().Duration("wait", 0, "Keep retrying for this long")

	release := &cobra.Command{
		Use:   "release NAME",
		Short: "release a lock held by --owner, or any owner with --force",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			n, err := a.cache(cmd)
			if err != nil {
				return err
			}
			owner, _ := cmd.Flags().GetString("owner")
			force, _ := cmd.Flags().GetBool("force")
			if owner == "" && !force {
				return fmt.Errorf("release: --owner or --force is required")
			}

			l, err := n.RestoreLock(args[0], owner)
			if err != nil {
				return err
			}
			if force {
				return l.ForceRelease(cmd.Context())
			}
			ok, err := l.Release(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("lock %q is not held by %q", args[0], owner)
			}
			return nil
		}),
	}
	release.Flags().String("owner", "", "Owner token printed by acquire")
	release.Flags().Bool("force", false, "Release regardless of owner")

	lockCmd.AddCommand(acquire, release)
	return lockCmd
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "check connectivity to the configured backend",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, a *app, _ []string) error {
			if a.ping == nil {
				return errNoRedis
			}
			if err := a.ping(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PONG")
			return nil
		}),
	}
}
