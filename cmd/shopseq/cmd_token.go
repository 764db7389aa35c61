package main

import (
	"fmt"

	"shopseq/app"
	"shopseq/internal/allocator"

	"github.com/spf13/cobra"
)

var (
	tokenPrefix string
	tokenBytes  int
	tokenCount  int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate tokens not held by any job",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer c.Shutdown(ctx)

		tokens := allocator.NewTokenAllocator(c.JobRepo, allocator.WithMaxAttempts(c.Config.Allocator.TokenMaxAttempts))
		for i := 0; i < tokenCount; i++ {
			token, err := tokens.AllocateToken(ctx, tokenPrefix, tokenBytes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenPrefix, "prefix", app.JobTokenPrefix, "Token prefix")
	tokenCmd.Flags().IntVar(&tokenBytes, "bytes", allocator.DefaultTokenBytes, "Random bytes per token (two hex digits each)")
	tokenCmd.Flags().IntVar(&tokenCount, "count", 1, "Number of tokens to print")
}
