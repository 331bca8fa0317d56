package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewThreadsCmd creates the threads command.
func NewThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List conversations with unread counts, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd.Context(), cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			threads, err := ctx.Aggregator.Threads(cmd.Context(), ctx.SelfID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, threads)
			}
			if len(threads) == 0 {
				fmt.Fprintln(out, "No conversations")
				return nil
			}
			for _, thread := range threads {
				fmt.Fprintln(out, FormatThread(thread))
			}
			return nil
		},
	}

	return cmd
}

// NewChatsCmd creates the chats command.
func NewChatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chat summaries, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd.Context(), cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			summaries, err := ctx.Store.Summaries(cmd.Context(), ctx.SelfID)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			out := cmd.OutOrStdout()
			if ctx.JSONMode {
				return writeJSON(out, summaries)
			}
			for _, summary := range summaries {
				fmt.Fprintf(out, "%-32s %-24s %s\n",
					summary.ChatID, summary.CounterpartOf(ctx.SelfID), summary.LastMessageAt.Local().Format(timeLayout))
			}
			return nil
		},
	}

	return cmd
}
