package main

import (
	"fmt"
	"io"

	"social-chat/repositories"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type ScanOptions struct {
	*RootOptions
	Prefix string
	Limit  int
}

func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Print stored records as a table",
		Long: `Print every record under a key prefix.

Examples:
  inspect scan --prefix conv:
  inspect scan --prefix msg:<conversation-id>: --limit 20
  inspect scan --prefix unread:<conversation-id>:`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openReadOnly(opts.Database)
			if err != nil {
				return fmt.Errorf("open %s: %w", opts.Database, err)
			}
			defer db.Close()

			var records []repositories.Record
			err = repositories.ScanRecords(db, opts.Prefix, opts.Limit, func(r repositories.Record) {
				records = append(records, r)
			})
			if err != nil {
				return err
			}
			renderRecords(cmd.OutOrStdout(), records, opts.config.Colours)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "conv:", "key prefix to scan")
	cmd.Flags().IntVar(&opts.Limit, "limit", 100, "maximum number of records, 0 for all")
	return cmd
}

func renderRecords(w io.Writer, records []repositories.Record, colours bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Namespace", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, r := range records {
		recordType := r.Type
		if colours {
			recordType = typeColour(r.Type).Render(r.Type)
		}
		table.Append([]string{r.Key, recordType, r.Timestamp, r.EntityID, r.Namespace, r.Detail})
	}
	table.Render()

	summary := fmt.Sprintf("%d record(s)", len(records))
	if colours {
		summary = color.New(color.BgBlack, color.FgGreen).Render(summary)
	}
	fmt.Fprintln(w, summary)
}

func typeColour(recordType string) color.Style {
	switch recordType {
	case "CONVERSATION":
		return color.New(color.FgCyan)
	case "TEXT", "IMAGE", "VIDEO", "MESSAGE":
		return color.New(color.FgGreen)
	case "UNREAD":
		return color.New(color.FgYellow)
	case "USER", "EMAIL":
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgGray)
	}
}
