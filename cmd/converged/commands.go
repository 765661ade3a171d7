package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/converge/pkg/client"
)

const defaultAPIUrl = "http://127.0.0.1:8080"

// GlobalFlags holds persistent flags shared by every command.
type GlobalFlags struct {
	ConfigPath string
}

// APIFlags holds daemon connection flags for client commands.
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
	Insecure   bool
}

func (f APIFlags) newClient() *client.Client {
	url := f.APIUrl
	if url == "" {
		url = defaultAPIUrl
	}
	return client.New(client.Config{
		BaseURL:  url,
		Timeout:  f.APITimeout,
		Insecure: f.Insecure,
	})
}

func (f APIFlags) reachableClient() (*client.Client, error) {
	c := f.newClient()
	if !c.IsReachable(context.Background()) {
		url := f.APIUrl
		if url == "" {
			url = defaultAPIUrl
		}
		return nil, fmt.Errorf("daemon not reachable at %s - please start daemon first with 'converged serve'", url)
	}
	return c, nil
}

func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	apiFlags := &APIFlags{}

	root := &cobra.Command{
		Use:           "converged",
		Short:         "converged drives workloads toward their declared state",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&globalFlags.ConfigPath, "config", "c", "converge.toml", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the reconciliation daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(globalFlags.ConfigPath)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's current status projection",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := apiFlags.reachableClient()
			if err != nil {
				return err
			}
			st, err := c.Status(context.Background())
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}

	reconcile := &cobra.Command{
		Use:   "reconcile [trigger]",
		Short: "Run one reconciliation pass",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			trigger := "cli"
			if len(args) == 1 {
				trigger = args[0]
			}
			c, err := apiFlags.reachableClient()
			if err != nil {
				return err
			}
			st, err := c.Reconcile(context.Background(), trigger)
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		},
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "Show every status entry the daemon tracks",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := apiFlags.reachableClient()
			if err != nil {
				return err
			}
			s, err := c.Summary(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(s)
			return nil
		},
	}

	deps := &cobra.Command{
		Use:   "deps",
		Short: "List dependency readiness",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := apiFlags.reachableClient()
			if err != nil {
				return err
			}
			ds, err := c.Deps(context.Background())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(ds)
		},
	}

	for _, c := range []*cobra.Command{status, reconcile, summary, deps} {
		c.Flags().StringVar(&apiFlags.APIUrl, "api-url", "", "daemon API URL (default "+defaultAPIUrl+")")
		c.Flags().DurationVar(&apiFlags.APITimeout, "api-timeout", 10*time.Second, "API request timeout")
		c.Flags().BoolVar(&apiFlags.Insecure, "insecure", false, "skip TLS verification")
	}

	root.AddCommand(serve, status, reconcile, summary, deps)
	return root
}

func printStatus(st client.StatusResponse) {
	if st.Message != "" {
		fmt.Printf("%s: %s\n", st.State, st.Message)
	} else {
		fmt.Println(st.State)
	}
	fmt.Printf("bootstrapped: %v\n", st.Bootstrapped)
}
