package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "chatctl"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "chatctl - operate on the chatsync message store",
		Long:          "chatctl sends, tails and summarizes one-to-one chats against the configured store backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("as", os.Getenv("CHATSYNC_AS"), "participant id to act as")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewSendCmd(),
		NewTailCmd(),
		NewThreadsCmd(),
		NewChatsCmd(),
		NewContactsCmd(),
	)

	return cmd
}

func Execute() error {
	return NewRootCmd(Version).Execute()
}
