package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"study-assistant/internal/rag"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var (
		k      int
		stream bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the study material",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd, flags, true)
			if err != nil {
				return err
			}
			defer sess.close()

			out := cmd.OutOrStdout()
			req := rag.AskRequest{Question: strings.Join(args, " "), K: k}

			var resp rag.AskResponse
			if stream {
				resp, err = sess.stack.Service.StreamAsk(sess.ctx, sess.id, req, func(chunk string) error {
					_, werr := fmt.Fprint(out, chunk)
					return werr
				})
				fmt.Fprintln(out)
			} else {
				resp, err = sess.stack.Service.Ask(sess.ctx, sess.id, req)
				if err == nil {
					fmt.Fprintln(out, resp.Answer)
				}
			}
			if err != nil {
				return err
			}

			if len(resp.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, src := range resp.Sources {
					fmt.Fprintf(out, "  - %s\n", src)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "number of passages placed in the prompt (default from RETRIEVAL_DEFAULT_K)")
	cmd.Flags().BoolVar(&stream, "stream", true, "print the answer as it is generated")
	return cmd
}
