package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/models"
)

func newPutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <type> <id> <json|->",
		Short: "Create or replace a resource",
		Args:  cobra.ExactArgs(3),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			value, err := readValue(args[2], cmd.InOrStdin())
			if err != nil {
				return err
			}
			record, err := app.Data.Put(cmd.Context(), args[0], args[1], value)
			if err != nil {
				return err
			}
			return printVersion(cmd, record)
		}),
	}
}

func newCreateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <type> <id> <json|->",
		Short: "Create a resource, failing if it already exists",
		Args:  cobra.ExactArgs(3),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			value, err := readValue(args[2], cmd.InOrStdin())
			if err != nil {
				return err
			}
			record, err := app.Data.Create(cmd.Context(), args[0], args[1], value)
			if err != nil {
				return err
			}
			return printVersion(cmd, record)
		}),
	}
}

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <type> <id> <json|->",
		Short: "Apply a shallow patch to an existing resource",
		Long: `Apply a shallow patch: top-level fields of the patch replace the
fields of the stored value, other fields are kept.`,
		Args: cobra.ExactArgs(3),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			patch, err := readValue(args[2], cmd.InOrStdin())
			if err != nil {
				return err
			}
			record, err := app.Data.Update(cmd.Context(), args[0], args[1], patch)
			if err != nil {
				return err
			}
			return printVersion(cmd, record)
		}),
	}
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "get <type> <id>",
		Short: "Print a resource value",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			record, err := app.Data.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if full {
				return printJSON(cmd.OutOrStdout(), record)
			}
			return printJSON(cmd.OutOrStdout(), record.Data)
		}),
	}
	cmd.Flags().BoolVar(&full, "full", false, "Print the versioned record with metadata and history")

	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List live resources of a type",
		Args:  cobra.ExactArgs(1),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			records, err := app.Data.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No resources found")
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tDEVICE\tUPDATED")
			for _, record := range records {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					record.ID, record.Version, record.DeviceID, formatMillis(record.Timestamp))
			}
			return w.Flush()
		}),
	}
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Delete a resource (kept as a tombstone until synchronized)",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			record, err := app.Data.Delete(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (version %d)\n", record.Key(), record.Version)
			return err
		}),
	}
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <type> <id>",
		Short: "Show the changes made to a resource on this device",
		Args:  cobra.ExactArgs(2),
		RunE: opts.withApp(func(cmd *cobra.Command, args []string, app *App) error {
			return printChanges(cmd, app.Data.History(args[0], args[1]))
		}),
	}
}

func newPendingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show changes waiting to be pushed",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			return printChanges(cmd, app.Tracker.PendingChanges())
		}),
	}
}

func printVersion(cmd *cobra.Command, record *models.VersionedData) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (version %d)\n", record.Key(), record.Version)
	return err
}

func printChanges(cmd *cobra.Command, changes []*models.Change) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No changes")
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHANGE\tOPERATION\tRESOURCE\tTIME")
	for _, change := range changes {
		fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\n",
			change.ID, change.Operation, change.ResourceType, change.ResourceID, formatMillis(change.Timestamp))
	}
	return w.Flush()
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
