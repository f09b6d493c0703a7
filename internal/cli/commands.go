package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/services"
)

func newGroupsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List groups with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTRANSACTIONS\tBALANCE")
			for _, g := range svc.Groups() {
				l, err := svc.List(g.ID, services.ListOptions{})
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", g.ID, g.Name, l.Summary.Count, core.FormatAmount(l.Summary.Balance))
			}
			return tw.Flush()
		},
	}
}

func newRenameCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename GROUP NAME",
		Short: "Change a group's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.RenameGroup(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Renamed %s to %q\n", args[0], strings.TrimSpace(args[1]))
			return nil
		},
	}
}

func newCategoriesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage the category lists of a group",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list GROUP [TYPE]",
		Short: "Show registered categories",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			g, err := svc.Group(args[0])
			if err != nil {
				return err
			}
			types := core.TxTypes()
			if len(args) == 2 {
				t, err := core.ParseTxType(args[1])
				if err != nil {
					return err
				}
				types = []core.TxType{t}
			}
			for _, t := range types {
				fmt.Fprintf(a.out, "%s: %s\n", t, strings.Join(g.CategoryNames(t), ", "))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add GROUP TYPE NAME",
		Short: "Register a category",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseTxType(args[1])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.AddCategory(cmd.Context(), args[0], t, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s category %q to %s\n", t, strings.TrimSpace(args[2]), args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove GROUP TYPE NAME",
		Short: "Unregister a category; existing transactions keep it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseTxType(args[1])
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.RemoveCategory(cmd.Context(), args[0], t, args[2]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s category %q from %s\n", t, args[2], args[0])
			return nil
		},
	})
	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	var txType, category, amount, date, description string

	cmd := &cobra.Command{
		Use:   "add GROUP",
		Short: "Record a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := core.ParseTxType(txType)
			if err != nil {
				return err
			}
			value, err := core.ParseAmount(amount)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			g, err := svc.Group(args[0])
			if err != nil {
				return err
			}
			if !g.HasCategory(t, strings.TrimSpace(category)) {
				fmt.Fprintf(a.errOut, "Note: %q is not a registered %s category\n", category, t)
			}

			tx, err := svc.AddTransaction(cmd.Context(), args[0], core.TransactionInput{
				Date:        date,
				Type:        t,
				Category:    category,
				Amount:      value,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s %s %s on %s (id %s)\n", tx.Type, tx.Category, core.FormatAmount(tx.Amount), tx.Date, tx.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&txType, "type", "t", string(core.Expense), "income or expense")
	f.StringVarP(&category, "category", "c", "", "category name")
	f.StringVarP(&amount, "amount", "a", "", "amount in whole units, separators allowed (e.g. 15,000)")
	f.StringVarP(&date, "date", "d", "", "date as YYYY-MM-DD (default today)")
	f.StringVar(&description, "description", "", "optional note")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newListCommand(a *app) *cobra.Command {
	var (
		types      []string
		categories []string
		oldest     bool
	)

	cmd := &cobra.Command{
		Use:   "list GROUP",
		Short: "List transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := listOptions(cmd, types, categories, oldest)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			l, err := svc.List(args[0], opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION\tID")
			for _, t := range l.Transactions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.Date, t.Type, t.Category, core.FormatAmount(t.Amount), t.Description, t.Key())
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d of %d transactions\n", len(l.Transactions), l.Summary.Count)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&types, "type", nil, "only these types (repeatable)")
	f.StringArrayVar(&categories, "category", nil, "only this category (repeatable)")
	f.BoolVar(&oldest, "oldest", false, "oldest first")
	return cmd
}

// listOptions leaves a set nil when its flag was not given so the service
// selects everything.
func listOptions(cmd *cobra.Command, types, categories []string, oldest bool) (services.ListOptions, error) {
	opts := services.ListOptions{Ascending: oldest}
	if cmd.Flags().Changed("type") {
		opts.Types = []core.TxType{}
		for _, s := range types {
			t, err := core.ParseTxType(s)
			if err != nil {
				return opts, err
			}
			opts.Types = append(opts.Types, t)
		}
	}
	if cmd.Flags().Changed("category") {
		opts.Categories = append([]string{}, categories...)
	}
	return opts, nil
}

func newSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary GROUP",
		Short: "Show totals and per-category amounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			g, err := svc.Group(args[0])
			if err != nil {
				return err
			}
			s := core.Summarize(g.Transactions)

			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(tw, "Group\t%s\t\n", g.Name)
			fmt.Fprintf(tw, "Income\t%s\t\n", core.FormatAmount(s.TotalIncome))
			fmt.Fprintf(tw, "Expense\t%s\t\n", core.FormatAmount(s.TotalExpense))
			fmt.Fprintf(tw, "Balance\t%s\t\n", core.FormatAmount(s.Balance))
			fmt.Fprintf(tw, "Transactions\t%d\t\n", s.Count)
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, t := range core.TxTypes() {
				rows := core.ByCategory(g.Transactions, t)
				if len(rows) == 0 {
					continue
				}
				fmt.Fprintf(a.out, "\n%s by category\n", t)
				tw = tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				for _, r := range rows {
					fmt.Fprintf(tw, "  %s\t%s\t(%d)\n", r.Name, core.FormatAmount(r.Amount), r.Count)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete GROUP ID",
		Short: "Delete a transaction by id (or timestamp for old records)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := svc.DeleteTransaction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s %s %s on %s\n", tx.Type, tx.Category, core.FormatAmount(tx.Amount), tx.Date)
			return nil
		},
	}
}

func newExportCommand(a *app) *cobra.Command {
	var (
		output     string
		types      []string
		categories []string
		oldest     bool
	)

	cmd := &cobra.Command{
		Use:   "export GROUP",
		Short: "Write transactions as CSV",
		Long:  "Write the group's transactions as UTF-8 CSV. Without -o the file is named after the group and today's date; -o - writes to stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := listOptions(cmd, types, categories, oldest)
			if err != nil {
				return err
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if output == "-" {
				return svc.Export(cmd.Context(), a.out, args[0], opts)
			}
			if output == "" {
				if output, err = svc.ExportFileName(args[0]); err != nil {
					return err
				}
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := svc.Export(cmd.Context(), f, args[0], opts); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			fmt.Fprintf(a.out, "Exported %s to %s\n", args[0], output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file, - for stdout")
	f.StringSliceVar(&types, "type", nil, "only these types (repeatable)")
	f.StringArrayVar(&categories, "category", nil, "only this category (repeatable)")
	f.BoolVar(&oldest, "oldest", false, "oldest first")
	return cmd
}

var errResetNotConfirmed = errors.New("reset deletes every transaction and category change; pass --yes to confirm")

func newResetCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Replace all data with the default ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errResetNotConfirmed
			}
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Ledger reset at %s\n", time.Now().Format(core.TimestampLayout))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
