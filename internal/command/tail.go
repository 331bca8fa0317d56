package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chatsync/internal/domain/entity"
	"chatsync/internal/usecase"
)

// NewTailCmd creates the tail command.
func NewTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail <counterpart>",
		Short: "Follow a conversation live",
		Long: "Follow a conversation live. Incoming messages are acknowledged as delivered " +
			"as soon as they are seen; --mark-read also marks them read.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markRead, _ := cmd.Flags().GetBool("mark-read")
			duration, _ := cmd.Flags().GetDuration("for")

			ctx, err := GetContext(cmd.Context(), cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, duration)
				defer cancel()
			}

			session := usecase.NewChatSession(ctx.Store, ctx.Stream, ctx.SelfID, args[0])
			defer session.Close()

			// Holds at most the latest snapshot; older ones are superseded.
			updates := make(chan []*entity.Message, 1)
			err = session.Subscribe(runCtx, func(messages []*entity.Message) {
				select {
				case <-updates:
				default:
				}
				updates <- messages
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if !ctx.JSONMode {
				fmt.Fprintf(out, "Following %s as %s (Ctrl-C to stop)\n", session.CounterpartID(), session.SelfID())
			}
			printed := make(map[string]entity.MessageStatus)
			for {
				select {
				case <-runCtx.Done():
					return nil
				case messages := <-updates:
					for _, m := range messages {
						if status, ok := printed[m.ID]; ok && status == m.Status {
							continue
						}
						printed[m.ID] = m.Status
						if ctx.JSONMode {
							if err := writeJSON(out, m); err != nil {
								return writeCommandError(cmd, err)
							}
							continue
						}
						fmt.Fprintln(out, FormatMessage(m, session.SelfID()))
					}
					if markRead {
						session.MarkVisible(runCtx)
					}
				}
			}
		},
	}

	cmd.Flags().Bool("mark-read", false, "mark delivered incoming messages read as they arrive")
	cmd.Flags().Duration("for", 0, "stop after this long (default: until interrupted)")

	return cmd
}
