package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"userrealm/contexts/identity-access/userstore-service/ports"
	"userrealm/internal/app/bootstrap"
)

var (
	// Global flags
	actorID string
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "realmctl",
	Short: "Administer the userrealm user store",
	Long: `realmctl manages users, groups and credentials of a userrealm
user store directly against its data sources. It reads the same
environment and realm file as the api and worker processes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "realmctl", "Actor id recorded in audit events")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withRuntime opens the runtime for one command and closes it afterwards.
func withRuntime(cmd *cobra.Command, fn func(ctx context.Context, runtime *bootstrap.Runtime) error) error {
	runtime, err := bootstrap.Open("realmctl")
	if err != nil {
		return err
	}
	defer runtime.Close()

	ctx := ports.WithActor(cmd.Context(), actorID)
	return fn(ctx, runtime)
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// printList writes names one per line, or as a JSON object under key.
func printList(key string, names []string) error {
	if jsonOut {
		return printJSON(map[string]any{key: names})
	}
	for _, name := range names {
		fmt.Fprintln(os.Stdout, name)
	}
	return nil
}
