package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"study-assistant/internal/service"
)

// snippetRunes bounds how much of each chunk is printed.
const snippetRunes = 240

func newQueryCmd(flags *globalFlags) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Print the passages most similar to the text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, flags, false)
			if err != nil {
				return err
			}
			defer sess.close()

			results, err := sess.stack.Service.Query(sess.ctx, sess.id, service.QueryRequest{
				Text: strings.Join(args, " "),
				K:    k,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s  score=%.3f\n", i+1, r.Source, r.Score)
				fmt.Fprintf(out, "   %s\n\n", snippet(r.Text))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of passages (default from RETRIEVAL_DEFAULT_K)")
	return cmd
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}
