// Command pfverify recomputes provably fair rounds offline from revealed
// seeds.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fair-casino-backend/internal/fairness"
	"fair-casino-backend/internal/games"
	"fair-casino-backend/internal/models"
	"fair-casino-backend/internal/services"
)

func main() {
	if err := RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd builds the command tree.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "pfverify",
		Short:        "Verify provably fair casino rounds",
		SilenceUsage: true,
	}
	cmd.AddCommand(
		HashCmd(),
		FloatsCmd(),
		RoundCmd(),
	)
	return cmd
}

// HashCmd prints the commitment of a server seed.
func HashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <server-seed>",
		Short: "Print SHA-256 of a server seed",
		Args:  cobra.ExactArgs(1),
		RunE:  hashServerSeed,
	}
	cmd.Flags().String("expect", "", "published hash to compare against")
	return cmd
}

func hashServerSeed(cmd *cobra.Command, args []string) error {
	expect, _ := cmd.Flags().GetString("expect")

	hash := fairness.HashServerSeed(args[0])
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	if expect != "" && !fairness.VerifyCommitment(args[0], expect) {
		return fmt.Errorf("hash mismatch: published %s, computed %s", expect, hash)
	}
	return nil
}

func addSeedFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("server", "s", "", "revealed server seed")
	cmd.MarkFlagRequired("server")
	cmd.Flags().StringP("client", "c", "", "client seed")
	cmd.MarkFlagRequired("client")
	cmd.Flags().Int64P("nonce", "n", 0, "round nonce")
}

// FloatsCmd prints the raw fairness stream.
func FloatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "floats",
		Short: "Print the fairness floats of a round",
		RunE:  printFloats,
	}
	addSeedFlags(cmd)
	cmd.Flags().Int("count", 8, "number of floats")
	return cmd
}

func printFloats(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	client, _ := cmd.Flags().GetString("client")
	nonce, _ := cmd.Flags().GetInt64("nonce")
	count, _ := cmd.Flags().GetInt("count")
	if count <= 0 {
		return fmt.Errorf("count must be positive")
	}

	for i, f := range fairness.NextValues(server, client, nonce, count) {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%v\n", i, f)
	}
	return nil
}

// RoundCmd replays one round of a game.
func RoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "round <game>",
		Short:     "Recompute the outcome and payout of a round",
		Args:      cobra.ExactArgs(1),
		ValidArgs: games.DefaultGameIDs(),
		RunE:      replayRound,
	}
	addSeedFlags(cmd)
	cmd.Flags().StringP("amount", "a", "0", "stake; 0 replays a unit stake where the game needs one")
	cmd.Flags().StringP("options", "o", "", "game options as JSON")
	return cmd
}

func replayRound(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	client, _ := cmd.Flags().GetString("client")
	nonce, _ := cmd.Flags().GetInt64("nonce")
	rawAmount, _ := cmd.Flags().GetString("amount")
	options, _ := cmd.Flags().GetString("options")

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	registry, err := games.DefaultRegistry(nil)
	if err != nil {
		return err
	}
	verifier := services.NewGameEngine(registry, nil, services.Collaborators{})

	result, err := verifier.Verify(&models.VerifyRequest{
		GameID:     args[0],
		ServerSeed: server,
		ClientSeed: client,
		Nonce:      nonce,
		Amount:     amount,
		Options:    json.RawMessage(options),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
