package cmd

import (
	"fmt"
	"io"
	"strings"

	"llm_dealer/pkg/chat"
	"llm_dealer/pkg/config"
	"llm_dealer/pkg/logs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAskCommand(opts *config.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Send a single question and print the answer",
		Long:  "Send a single question and print the answer. Without arguments the question is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(*opts)
			if err != nil {
				return err
			}
			defer logs.Sync()

			question := strings.Join(args, " ")
			if question == "" {
				content, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read question from stdin: %w", err)
				}
				question = string(content)
			}
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("no question given")
			}

			session := chat.NewSession(newClient(cfg), cfg.Instructions, nil)
			session.Send(cmd.Context(), question)
			session.Wait()

			last := session.Last()
			if last.Err != nil {
				logs.Error("question failed", zap.String("id", last.ID), zap.Error(last.Err))
				return last.Err
			}
			fmt.Fprintln(cmd.OutOrStdout(), last.Text)
			return nil
		},
	}
}
