package cmd

import (
	"llm_dealer/pkg/chat"
	"llm_dealer/pkg/config"
	"llm_dealer/pkg/logs"
	"llm_dealer/pkg/system"
	"llm_dealer/pkg/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type RootCommand struct {
	CobraCommand *cobra.Command
}

func NewRootCommand() *RootCommand {
	var opts config.Options

	cmd := &cobra.Command{
		Use:           "llm_dealer",
		Short:         "Ask a chat-completion model questions from the terminal",
		Long:          `llm_dealer sends your question, together with a fixed instruction file, to a chat-completion endpoint and shows the answer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			defer logs.Sync()

			client := newClient(cfg)
			window := ui.New(client, cfg.Instructions, system.New(client.Model()))
			if err := window.Run(cmd.Context()); err != nil {
				logs.Error("window closed with error", zap.Error(err))
				return err
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.SettingsFile, "config", "c", "", "settings file (default "+config.DefaultSettingsFile+" if present)")
	flags.StringVarP(&opts.InstructionFile, "instruction", "i", "", "instruction file (default "+config.DefaultInstructionFile+")")
	flags.StringVar(&opts.LogFile, "log-file", "", "write logs to this file")

	cmd.AddCommand(newAskCommand(&opts))
	cmd.AddCommand(newVersionCommand())

	return &RootCommand{
		CobraCommand: cmd,
	}
}

// setup loads configuration and starts logging. Any error here is fatal.
func setup(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}
	if err := logs.Init(cfg.Log); err != nil {
		return nil, err
	}

	logs.Info("configuration loaded",
		zap.String("model", cfg.Model),
		zap.String("endpoint", cfg.Endpoint),
		zap.Duration("timeout", cfg.Timeout),
		zap.String("instruction_file", cfg.InstructionFile),
	)
	return cfg, nil
}

func newClient(cfg *config.Config) *chat.Client {
	return chat.NewClient(cfg.APIKey,
		chat.WithEndpoint(cfg.Endpoint),
		chat.WithModel(cfg.Model),
		chat.WithTimeout(cfg.Timeout),
	)
}
