package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hashcache <subcommand>",
		Short: "inspects and edits hash-segmented caches in redis",
		Long: `inspects and edits hash-segmented caches in redis.
Every cache lives in a namespace "<base>:<location>" stored as one redis hash.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config-file", "c", "", "Path to the config file (eg ./config.yaml) [Optional]")
	rootCmd.PersistentFlags().StringP("namespace", "n", "", "Namespace to operate on, as <base>:<location> (eg general:users)")
	rootCmd.PersistentFlags().Bool("clear-cache", false, "Bypass cached reads for this invocation")

	rootCmd.AddCommand(
		newGetCmd(),
		newPutCmd(),
		newAddCmd(),
		newIncrCmd(),
		newForgetCmd(),
		newFlushCmd(),
		newDumpCmd(),
		newNamespacesCmd(),
		newLockCmd(),
		newPingCmd(),
	)
	return rootCmd
}
