package main

import (
	"fmt"
	"net/http"
	"time"

	"social-chat/internal"

	"github.com/spf13/cobra"
)

type ServeOptions struct {
	*RootOptions
	Port int
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the records as a web page",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openReadOnly(opts.Database)
			if err != nil {
				return fmt.Errorf("open %s: %w", opts.Database, err)
			}
			defer db.Close()

			stats := func() map[string]any {
				return map[string]any{
					"Status": "Viewer Mode (Read-Only)",
					"Time":   time.Now().Format(time.RFC822),
				}
			}
			address := fmt.Sprintf("localhost:%d", opts.Port)
			fmt.Fprintf(cmd.OutOrStdout(), "Viewer started at http://%s/inspect\n", address)

			mux := http.NewServeMux()
			mux.Handle("/inspect", internal.InspectHandler(db, stats))
			server := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			return server.ListenAndServe()
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 8081, "port of the viewer")
	return cmd
}
