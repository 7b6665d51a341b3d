package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/testscope/internal/modellist"
)

var flagToken string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the LLM models available to the configured platform",
	Long:  "Fetches the model list for the configured platform and token. On Grazie the single model GPT-4 is listed and selection is disabled; when the list cannot be fetched it is empty and disabled.",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	modelsCmd.Flags().StringVar(&flagToken, "token", "", "LLM user token (default: llm_user_token setting)")
}

func runModels(cmd *cobra.Command, args []string) error {
	s, _, err := loadSettings()
	if err != nil {
		return outputError("models", err)
	}
	token := flagToken
	if token == "" {
		token = s.LLMUserToken
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	lister := modellist.NewLister(s.ModelsEndpoint, modellist.WithLogger(logger))
	catalog := modellist.NewCatalog(lister, modellist.WithCatalogLogger(logger))

	var state modellist.State
	select {
	case state = <-catalog.Refresh(ctx, s.Platform, token, s.Model):
	case <-ctx.Done():
		return outputError("models", ctx.Err())
	}
	catalog.Wait()

	if !state.Enabled && len(state.Models) == 0 {
		return outputError("models", fmt.Errorf("%w: check the token and models_endpoint", modellist.ErrUnavailable))
	}
	n := len(state.Models)
	return outputResult(CLIResult{
		Command:    "models",
		Results:    CLIModels{Models: state.Models, Enabled: state.Enabled},
		TotalCount: &n,
	})
}
