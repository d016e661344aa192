package tokens

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Token statistics for text files",
		Long: `Analyze token counts in text files. Subcommands:
  count     Count tokens in .txt and .md files`,
	}
	cmd.AddCommand(newCountCmd())
	return cmd
}
