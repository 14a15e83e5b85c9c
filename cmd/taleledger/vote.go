// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"time"

	"github.com/blinklabs-io/taleledger/governance"
	"github.com/spf13/cobra"
)

func voteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Create, cast and inspect weighted votes",
	}
	cmd.AddCommand(
		voteCreateCommand(),
		voteCastCommand(),
		voteFinalizeCommand(),
		voteResultsCommand(),
		voteListCommand(),
	)
	return cmd
}

// parseTime accepts RFC3339 or unix seconds
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	var secs int64
	if _, err := fmt.Sscanf(value, "%d", &secs); err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or unix seconds", value)
	}
	return time.Unix(secs, 0), nil
}

func voteCreateCommand() *cobra.Command {
	var (
		keyFile     string
		votingId    string
		question    string
		description string
		choices     []string
		start       string
		end         string
		duration    time.Duration
		gatingMint  string
		regular     uint64
		nft         uint64
		category    string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a vote signed by the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			key, err := loadKey(cfg, keyFile)
			if err != nil {
				return err
			}
			params := governance.CreateVoteParams{
				VotingId:         votingId,
				Question:         question,
				Description:      description,
				Choices:          choices,
				RegularVotePower: regular,
				NftVotePower:     nft,
				Tags:             tags,
			}
			params.Category, err = governance.ParseCategory(category)
			if err != nil {
				return err
			}
			params.StartTime = time.Now()
			if start != "" {
				if params.StartTime, err = parseTime(start); err != nil {
					return err
				}
			}
			params.EndTime = params.StartTime.Add(duration)
			if end != "" {
				if params.EndTime, err = parseTime(end); err != nil {
					return err
				}
			}
			if gatingMint != "" {
				mint, err := parseAddressFlag("gating-mint", gatingMint)
				if err != nil {
					return err
				}
				params.GatingMint = &mint
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			addr, err := n.Governance().CreateVote(
				cmd.Context(),
				key.Signers(),
				key.Address(),
				params,
			)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"address": addr})
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "signing key of the creator")
	cmd.Flags().StringVar(&votingId, "voting-id", "", "creator-scoped vote identifier")
	cmd.Flags().StringVar(&question, "question", "", "question to ask")
	cmd.Flags().StringVar(&description, "description", "", "longer description")
	cmd.Flags().StringArrayVar(&choices, "choice", nil, "a choice (repeat for each)")
	cmd.Flags().StringVar(&start, "start", "", "start time, RFC3339 or unix seconds (default now)")
	cmd.Flags().StringVar(&end, "end", "", "end time, RFC3339 or unix seconds")
	cmd.Flags().DurationVar(&duration, "duration", 24*time.Hour, "vote length when --end is not given")
	cmd.Flags().StringVar(&gatingMint, "gating-mint", "", "mint whose holders vote with NFT power")
	cmd.Flags().Uint64Var(&regular, "regular-power", 1, "weight of an ungated ballot")
	cmd.Flags().Uint64Var(&nft, "nft-power", 1, "weight of a token holder's ballot")
	cmd.Flags().StringVar(&category, "category", "other", "content, feature, community, technical or other")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "a tag (repeat for each)")
	return cmd
}

func voteCastCommand() *cobra.Command {
	var keyFile, vote, tokenAccount string
	var choice uint8
	cmd := &cobra.Command{
		Use:   "cast",
		Short: "Cast a ballot signed by the key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			voteAddr, err := parseAddressFlag("vote", vote)
			if err != nil {
				return err
			}
			key, err := loadKey(cfg, keyFile)
			if err != nil {
				return err
			}
			params := governance.CastVoteParams{
				Vote:   voteAddr,
				Voter:  key.Address(),
				Choice: choice,
			}
			if tokenAccount != "" {
				account, err := parseAddressFlag("token-account", tokenAccount)
				if err != nil {
					return err
				}
				params.TokenAccount = &account
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			receipt, err := n.Governance().CastVote(cmd.Context(), key.Signers(), params)
			if err != nil {
				return err
			}
			return printJSON(receipt)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "signing key of the voter")
	cmd.Flags().StringVar(&vote, "vote", "", "vote address")
	cmd.Flags().Uint8Var(&choice, "choice", 0, "index of the chosen option")
	cmd.Flags().StringVar(&tokenAccount, "token-account", "", "token account proving a gated holding")
	return cmd
}

func voteFinalizeCommand() *cobra.Command {
	var keyFile, vote string
	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Finalize an ended vote as its creator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			voteAddr, err := parseAddressFlag("vote", vote)
			if err != nil {
				return err
			}
			key, err := loadKey(cfg, keyFile)
			if err != nil {
				return err
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			ret, err := n.Governance().FinalizeVote(
				cmd.Context(),
				key.Signers(),
				voteAddr,
				key.Address(),
			)
			if err != nil {
				return err
			}
			return printJSON(ret)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "signing key of the creator")
	cmd.Flags().StringVar(&vote, "vote", "", "vote address")
	return cmd
}

func voteResultsCommand() *cobra.Command {
	var vote string
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show the results of an ended vote",
		RunE: func(cmd *cobra.Command, args []string) error {
			voteAddr, err := parseAddressFlag("vote", vote)
			if err != nil {
				return err
			}
			n, err := openNode(mustConfig(cmd))
			if err != nil {
				return err
			}
			defer n.Close()
			res, err := n.Governance().GetResults(cmd.Context(), voteAddr)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&vote, "vote", "", "vote address")
	return cmd
}

func voteListCommand() *cobra.Command {
	var keyFile, status, category string
	var page, pageSize uint32
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Save a listing filter for the key and print the matching votes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := mustConfig(cmd)
			key, err := loadKey(cfg, keyFile)
			if err != nil {
				return err
			}
			params := governance.ListVotesParams{Page: page, PageSize: pageSize}
			if params.Status, err = governance.ParsePhase(status); err != nil {
				return err
			}
			if category != "" {
				c, err := governance.ParseCategory(category)
				if err != nil {
					return err
				}
				params.Category = &c
			}
			n, err := openNode(cfg)
			if err != nil {
				return err
			}
			defer n.Close()
			list, err := n.Governance().ListVotes(
				cmd.Context(),
				key.Signers(),
				key.Address(),
				params,
			)
			if err != nil {
				return err
			}
			rows, total, err := n.Governance().QueryVotes(
				cmd.Context(),
				list.Filter(),
			)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"list":  list,
				"votes": rows,
				"total": total,
			})
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "signing key of the list owner")
	cmd.Flags().StringVar(&status, "status", "active", "upcoming, active or completed")
	cmd.Flags().StringVar(&category, "category", "", "optional category filter")
	cmd.Flags().Uint32Var(&page, "page", 1, "page number")
	cmd.Flags().Uint32Var(&pageSize, "page-size", 20, "votes per page")
	return cmd
}
