package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatsync/pkg/errors"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	if errors.Is(err, errors.CodeTransient) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the store was unreachable, retry shortly")
	}

	return err
}
