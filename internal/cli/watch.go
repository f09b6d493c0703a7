package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
)

var errNoBroker = errors.New("watch needs AMQP_URL to be set")

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "watch",
		Short:       "Print ledger change events from the message broker",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationFullLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AMQPURL == "" {
				return errNoBroker
			}
			client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue,
				a.logger.WithComponent(log.ComponentAMQP))
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = client.ConsumeEvents(ctx, func(ev *amqp.LedgerEvent) error {
				writeEvent(a.out, ev)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func writeEvent(w io.Writer, ev *amqp.LedgerEvent) {
	line := fmt.Sprintf("%s %-18s %s", ev.Timestamp.Format(core.TimestampLayout), ev.Operation, ev.GroupID)
	if ev.TransactionID != "" {
		line += fmt.Sprintf(" %s %s %s %s", ev.TransactionID, ev.Type, ev.Category, core.FormatAmount(ev.Amount))
	}
	fmt.Fprintln(w, line)
}
