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

package governance

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/database/plugin/metadata"
	"github.com/blinklabs-io/taleledger/database/types"
	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

// TokenOracle reads token accounts inside a running operation
type TokenOracle interface {
	LookupTokenAccount(
		tx *ledger.Tx,
		addr ledger.Address,
	) (mint ledger.Address, owner ledger.Address, amount uint64, err error)
}

type EngineConfig struct {
	Runtime      *ledger.Runtime
	TokenOracle  TokenOracle
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

// Engine runs the voting operations on top of the ledger runtime
type Engine struct {
	rt      *ledger.Runtime
	oracle  TokenOracle
	logger  *slog.Logger
	metrics *engineMetrics
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Runtime == nil {
		return nil, errors.New("governance: runtime is required")
	}
	if cfg.TokenOracle == nil {
		return nil, errors.New("governance: token oracle is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Runtime.RegisterRecordTypes(
		func() ledger.Record { return &Vote{} },
		func() ledger.Record { return &VoteRecord{} },
		func() ledger.Record { return &VoteList{} },
	)
	return &Engine{
		rt:      cfg.Runtime,
		oracle:  cfg.TokenOracle,
		logger:  cfg.Logger.With("component", "governance"),
		metrics: newEngineMetrics(cfg.PromRegistry),
	}, nil
}

type CreateVoteParams struct {
	VotingId         string
	Question         string
	Description      string
	Choices          []string
	StartTime        time.Time
	EndTime          time.Time
	GatingMint       *ledger.Address
	RegularVotePower uint64
	NftVotePower     uint64
	Category         Category
	Tags             []string
}

func (p *CreateVoteParams) validate() error {
	if !p.StartTime.Before(p.EndTime) {
		return ErrInvalidTimeRange.WithDetail(
			"start %d, end %d",
			p.StartTime.Unix(),
			p.EndTime.Unix(),
		)
	}
	// Start and end compare in whole seconds once stored
	if p.StartTime.Unix() >= p.EndTime.Unix() {
		return ErrInvalidTimeRange.WithDetail("start and end fall in the same second")
	}
	if len(p.Choices) < MinChoices || len(p.Choices) > MaxChoices {
		return ErrInvalidChoices.WithDetail("got %d", len(p.Choices))
	}
	if p.RegularVotePower == 0 {
		return ErrInvalidVotePower.WithDetail("regular")
	}
	if p.NftVotePower == 0 {
		return ErrInvalidVotePower.WithDetail("nft")
	}
	if len(p.Tags) > MaxTags {
		return ErrTooManyTags.WithDetail("got %d", len(p.Tags))
	}
	if p.VotingId == "" || len(p.VotingId) > MaxVotingIdLength {
		return ErrInvalidVoteId.WithDetail("%d bytes", len(p.VotingId))
	}
	if err := ledger.ValidateLength("question", p.Question, MaxQuestionLength); err != nil {
		return err
	}
	if err := ledger.ValidateLength("description", p.Description, MaxDescriptionLength); err != nil {
		return err
	}
	for i, choice := range p.Choices {
		if err := ledger.ValidateLength(fmt.Sprintf("choices[%d]", i), choice, MaxChoiceLength); err != nil {
			return err
		}
	}
	for i, tag := range p.Tags {
		if err := ledger.ValidateLength(fmt.Sprintf("tags[%d]", i), tag, MaxTagLength); err != nil {
			return err
		}
	}
	return ledger.ValidateEnum("category", p.Category)
}

// VoteAddress returns the address of the vote a creator opened under a
// voting ID
func (e *Engine) VoteAddress(creator ledger.Address, votingId string) (ledger.Address, error) {
	return e.rt.AddressOf(&Vote{Creator: creator, VotingId: votingId})
}

// VoteRecordAddress returns the address of a voter's receipt for a vote
func (e *Engine) VoteRecordAddress(vote, voter ledger.Address) (ledger.Address, error) {
	return e.rt.AddressOf(&VoteRecord{Vote: vote, Voter: voter})
}

// VoteListAddress returns the address of an owner's listing state
func (e *Engine) VoteListAddress(owner ledger.Address) (ledger.Address, error) {
	return e.rt.AddressOf(&VoteList{Owner: owner})
}

// CreateVote opens a vote along with the creator's empty receipt. The
// creator signs and pays both deposits.
func (e *Engine) CreateVote(
	ctx context.Context,
	signers ledger.SignerSet,
	creator ledger.Address,
	params CreateVoteParams,
) (ledger.Address, error) {
	if err := params.validate(); err != nil {
		return ledger.Address{}, err
	}
	if err := ledger.RequireSigner(creator, signers); err != nil {
		return ledger.Address{}, err
	}
	voteAddr, err := e.VoteAddress(creator, params.VotingId)
	if err != nil {
		return ledger.Address{}, err
	}
	recordAddr, err := e.VoteRecordAddress(voteAddr, creator)
	if err != nil {
		return ledger.Address{}, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(voteAddr),
		ledger.RecordLock(recordAddr),
		ledger.BalanceLock(creator),
	}
	err = e.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		vote := &Vote{
			Creator:          creator,
			VotingId:         params.VotingId,
			Question:         params.Question,
			Description:      params.Description,
			Choices:          append([]string(nil), params.Choices...),
			StartTime:        params.StartTime.Unix(),
			EndTime:          params.EndTime.Unix(),
			RegularVotePower: params.RegularVotePower,
			NftVotePower:     params.NftVotePower,
			Tally:            make([]uint64, len(params.Choices)),
			IsActive:         true,
			Phase:            PhaseUpcoming,
			Category:         params.Category,
			Tags:             append([]string(nil), params.Tags...),
			CreatedAt:        tx.Now().Unix(),
		}
		if params.GatingMint != nil {
			mint := *params.GatingMint
			vote.GatingMint = &mint
		}
		if _, err := tx.Create(vote, creator); err != nil {
			return err
		}
		receipt := &VoteRecord{Vote: voteAddr, Voter: creator}
		if _, err := tx.Create(receipt, creator); err != nil {
			return err
		}
		if err := e.indexVote(tx, voteAddr, vote); err != nil {
			return err
		}
		tx.OnCommit(func() {
			e.metrics.votesCreated.Inc()
			e.logger.Debug(
				"vote created",
				"vote", voteAddr.String(),
				"creator", creator.String(),
				"voting_id", params.VotingId,
			)
		})
		tx.Publish(VoteCreatedEventType, VoteCreatedEvent{
			Vote:     voteAddr,
			Creator:  creator,
			VotingId: params.VotingId,
			Choices:  len(vote.Choices),
			Gated:    vote.Gated(),
		})
		return nil
	})
	if err != nil {
		return ledger.Address{}, err
	}
	return voteAddr, nil
}

type CastVoteParams struct {
	Vote   ledger.Address
	Voter  ledger.Address
	Choice uint8
	// TokenAccount is required when the vote is gated by a mint
	TokenAccount *ledger.Address
}

// CastVote records a weighted ballot. The voter signs and pays for the
// receipt when one does not exist yet.
func (e *Engine) CastVote(
	ctx context.Context,
	signers ledger.SignerSet,
	params CastVoteParams,
) (*VoteRecord, error) {
	ret, err := e.castVote(ctx, signers, params)
	if err != nil {
		e.metrics.observeRejectedCast(err)
		return nil, err
	}
	return ret, nil
}

func (e *Engine) castVote(
	ctx context.Context,
	signers ledger.SignerSet,
	params CastVoteParams,
) (*VoteRecord, error) {
	recordAddr, err := e.VoteRecordAddress(params.Vote, params.Voter)
	if err != nil {
		return nil, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(params.Vote),
		ledger.RecordLock(recordAddr),
		ledger.BalanceLock(params.Voter),
	}
	if params.TokenAccount != nil {
		keys = append(keys, ledger.RecordLock(*params.TokenAccount))
	}
	var ret *VoteRecord
	err = e.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		var vote Vote
		if err := tx.Load(params.Vote, &vote); err != nil {
			return err
		}
		now := tx.Now().Unix()
		if !vote.IsActive {
			return ErrVoteNotActive
		}
		if now < vote.StartTime {
			return ErrVoteNotStarted.WithDetail("starts at %d", vote.StartTime)
		}
		if now > vote.EndTime {
			return ErrVoteEnded.WithDetail("ended at %d", vote.EndTime)
		}
		if int(params.Choice) >= len(vote.Choices) {
			return ErrInvalidChoice.WithDetail(
				"%d of %d",
				params.Choice,
				len(vote.Choices),
			)
		}
		var receipt VoteRecord
		exists, err := tx.Exists(recordAddr)
		if err != nil {
			return err
		}
		if exists {
			if err := tx.Load(recordAddr, &receipt); err != nil {
				return err
			}
			if receipt.HasVoted {
				return ErrAlreadyVoted
			}
			if err := ledger.Authorize(&receipt, tx.Signers()); err != nil {
				return err
			}
		} else {
			if err := ledger.RequireSigner(params.Voter, tx.Signers()); err != nil {
				return err
			}
			receipt = VoteRecord{Vote: params.Vote, Voter: params.Voter}
		}
		nft, err := e.holdsGatingToken(tx, &vote, params)
		if err != nil {
			return err
		}
		power := vote.RegularVotePower
		if nft {
			power = vote.NftVotePower
		}
		if err := applyBallot(&vote, params.Choice, power, nft); err != nil {
			return err
		}
		choice := params.Choice
		receipt.HasVoted = true
		receipt.VotePower = power
		receipt.VotedChoice = &choice
		receipt.VotedAt = &now
		if exists {
			err = tx.Save(recordAddr, &receipt)
		} else {
			_, err = tx.Create(&receipt, params.Voter)
		}
		if err != nil {
			return err
		}
		if err := tx.Save(params.Vote, &vote); err != nil {
			return err
		}
		if err := e.indexVote(tx, params.Vote, &vote); err != nil {
			return err
		}
		if err := e.indexBallot(tx, &receipt, vote.Gated()); err != nil {
			return err
		}
		tx.OnCommit(func() {
			e.metrics.observeCast(nft, power)
		})
		tx.Publish(VoteCastEventType, VoteCastEvent{
			Vote:   params.Vote,
			Voter:  params.Voter,
			Choice: choice,
			Power:  power,
			Gated:  vote.Gated(),
		})
		ret = &receipt
		return nil
	})
	return ret, err
}

// holdsGatingToken reports whether the voter casts with the weight of a
// token holder. Ungated votes always use the regular weight.
func (e *Engine) holdsGatingToken(
	tx *ledger.Tx,
	vote *Vote,
	params CastVoteParams,
) (bool, error) {
	if !vote.Gated() {
		return false, nil
	}
	if params.TokenAccount == nil {
		return false, ErrInvalidNFT.WithDetail("no token account presented")
	}
	mint, owner, amount, err := e.oracle.LookupTokenAccount(tx, *params.TokenAccount)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) ||
			errors.Is(err, ledger.ErrDiscriminatorMismatch) {
			return false, ErrInvalidNFT.Wrap(err)
		}
		return false, err
	}
	if mint != *vote.GatingMint {
		return false, ErrInvalidNFT.WithDetail("account holds %s", mint)
	}
	if owner != params.Voter {
		return false, ErrNotNFTOwner.WithDetail("account owned by %s", owner)
	}
	return amount > 0, nil
}

// applyBallot adds one ballot to the vote counters. Nothing is modified
// when any counter would overflow.
func applyBallot(vote *Vote, choice uint8, power uint64, nft bool) error {
	slot, err := ledger.CheckedAdd(vote.Tally[choice], power)
	if err != nil {
		return err
	}
	total, err := ledger.CheckedAdd(vote.TotalVotePower, power)
	if err != nil {
		return err
	}
	participants, err := ledger.CheckedAdd(vote.TotalParticipants, 1)
	if err != nil {
		return err
	}
	counter := &vote.RegularVoters
	if nft {
		counter = &vote.NftVoters
	}
	voters, err := ledger.CheckedAdd(*counter, 1)
	if err != nil {
		return err
	}
	vote.Tally[choice] = slot
	vote.TotalVotePower = total
	vote.TotalParticipants = participants
	*counter = voters
	if vote.Phase == PhaseUpcoming {
		vote.Phase = PhaseActive
	}
	return nil
}

// winningChoice returns the first choice whose tally is strictly greater
// than every earlier one and than zero
func winningChoice(tally []uint64) *uint8 {
	var best uint64
	var ret *uint8
	for i, votes := range tally {
		if votes > best {
			best = votes
			idx := uint8(i) //nolint:gosec // at most MaxChoices
			ret = &idx
		}
	}
	return ret
}

// FinalizeVote closes a vote after its end time and records the winner
func (e *Engine) FinalizeVote(
	ctx context.Context,
	signers ledger.SignerSet,
	voteAddr ledger.Address,
	caller ledger.Address,
) (*Vote, error) {
	var ret Vote
	keys := []ledger.LockKey{ledger.RecordLock(voteAddr)}
	err := e.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		if err := tx.Load(voteAddr, &ret); err != nil {
			return err
		}
		if !ret.IsActive {
			return ErrVoteNotActive
		}
		if tx.Now().Unix() <= ret.EndTime {
			return ErrVoteStillActive.WithDetail("ends at %d", ret.EndTime)
		}
		if ret.Creator != caller {
			return ErrNotCreator
		}
		if err := ledger.Authorize(&ret, tx.Signers()); err != nil {
			return err
		}
		ret.IsActive = false
		ret.Phase = PhaseCompleted
		ret.WinningChoice = winningChoice(ret.Tally)
		if err := tx.Save(voteAddr, &ret); err != nil {
			return err
		}
		if err := e.indexVote(tx, voteAddr, &ret); err != nil {
			return err
		}
		tx.OnCommit(func() {
			e.metrics.votesFinalized.Inc()
		})
		tx.Publish(VoteFinalizedEventType, VoteFinalizedEvent{
			Vote:           voteAddr,
			WinningChoice:  ret.WinningChoice,
			TotalVotePower: ret.TotalVotePower,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// Results is the outcome of a vote
type Results struct {
	Address           ledger.Address
	Choices           []string
	Tally             []uint64
	WinningChoice     *uint8
	TotalVotePower    uint64
	TotalParticipants uint64
	RegularVoters     uint64
	NftVoters         uint64
	Phase             Phase
}

// GetResults returns the tally once the vote is finalized or past its end
// time
func (e *Engine) GetResults(ctx context.Context, voteAddr ledger.Address) (*Results, error) {
	var ret *Results
	err := e.rt.View(ctx, func(tx *ledger.Tx) error {
		var vote Vote
		if err := tx.Load(voteAddr, &vote); err != nil {
			return err
		}
		if vote.Open(tx.Now().Unix()) {
			return ErrVoteStillActive.WithDetail("ends at %d", vote.EndTime)
		}
		ret = &Results{
			Address:           voteAddr,
			Choices:           vote.Choices,
			Tally:             vote.Tally,
			WinningChoice:     vote.WinningChoice,
			TotalVotePower:    vote.TotalVotePower,
			TotalParticipants: vote.TotalParticipants,
			RegularVoters:     vote.RegularVoters,
			NftVoters:         vote.NftVoters,
			Phase:             vote.Phase,
		}
		return nil
	})
	return ret, err
}

type ListVotesParams struct {
	Status   Phase
	Category *Category
	Page     uint32
	PageSize uint32
}

// ListVotes records the owner's listing filter in their vote list record,
// creating it on first use
func (e *Engine) ListVotes(
	ctx context.Context,
	signers ledger.SignerSet,
	owner ledger.Address,
	params ListVotesParams,
) (*VoteList, error) {
	if err := ledger.ValidateEnum("status", params.Status); err != nil {
		return nil, err
	}
	if params.Category != nil {
		if err := ledger.ValidateEnum("category", *params.Category); err != nil {
			return nil, err
		}
	}
	listAddr, err := e.VoteListAddress(owner)
	if err != nil {
		return nil, err
	}
	keys := []ledger.LockKey{
		ledger.RecordLock(listAddr),
		ledger.BalanceLock(owner),
	}
	var ret VoteList
	err = e.rt.Execute(ctx, signers, keys, func(tx *ledger.Tx) error {
		exists, err := tx.Exists(listAddr)
		if err != nil {
			return err
		}
		if exists {
			if err := tx.Load(listAddr, &ret); err != nil {
				return err
			}
			if err := ledger.Authorize(&ret, tx.Signers()); err != nil {
				return err
			}
		}
		ret.Owner = owner
		ret.Status = params.Status
		ret.Category = nil
		if params.Category != nil {
			category := *params.Category
			ret.Category = &category
		}
		ret.Page = params.Page
		ret.PageSize = params.PageSize
		ret.LastUpdated = tx.Now().Unix()
		if exists {
			return tx.Save(listAddr, &ret)
		}
		_, err = tx.Create(&ret, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetVote returns the vote stored at addr
func (e *Engine) GetVote(ctx context.Context, addr ledger.Address) (*Vote, error) {
	var ret Vote
	err := e.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// GetVoteRecord returns a voter's receipt for a vote
func (e *Engine) GetVoteRecord(
	ctx context.Context,
	voteAddr ledger.Address,
	voter ledger.Address,
) (*VoteRecord, error) {
	addr, err := e.VoteRecordAddress(voteAddr, voter)
	if err != nil {
		return nil, err
	}
	var ret VoteRecord
	err = e.rt.View(ctx, func(tx *ledger.Tx) error {
		return tx.Load(addr, &ret)
	})
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

// QueryVotes reads a page of the vote index
func (e *Engine) QueryVotes(
	ctx context.Context,
	filter models.VoteFilter,
) ([]models.VoteIndex, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	ret, total, err := e.rt.Database().Metadata().GetVoteIndexes(filter, nil)
	if err != nil {
		return nil, 0, ledger.ErrStorage.Wrap(err)
	}
	return ret, total, nil
}

// Ballots lists the ballots cast on a vote
func (e *Engine) Ballots(ctx context.Context, voteAddr ledger.Address) ([]models.Ballot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ret, err := e.rt.Database().Metadata().GetBallots(voteAddr.Bytes(), nil)
	if err != nil {
		return nil, ledger.ErrStorage.Wrap(err)
	}
	return ret, nil
}

// RebuildIndex replaces the vote and ballot index with rows derived from the
// stored votes and ballot receipts. Like the record index rebuild it should
// run while the node is not serving requests.
func (e *Engine) RebuildIndex(ctx context.Context) (votes int, ballots int, err error) {
	err = e.rt.Execute(ctx, ledger.NewSignerSet(), nil, func(tx *ledger.Tx) error {
		votes, ballots = 0, 0
		err := tx.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
			return store.ClearVoteIndexes(metaTxn)
		})
		if err != nil {
			return err
		}
		gated := make(map[ledger.Address]bool)
		var receipts []*VoteRecord
		_, err = tx.ScanRecords(func(stored ledger.StoredRecord) error {
			switch rec := stored.Record.(type) {
			case *Vote:
				gated[stored.Address] = rec.Gated()
				votes++
				return e.indexVote(tx, stored.Address, rec)
			case *VoteRecord:
				if rec.HasVoted && rec.VotedChoice != nil && rec.VotedAt != nil {
					receipts = append(receipts, rec)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		// ballots go back in casting order
		slices.SortStableFunc(receipts, func(a, b *VoteRecord) int {
			return cmp.Compare(*a.VotedAt, *b.VotedAt)
		})
		for _, receipt := range receipts {
			if err := e.indexBallot(tx, receipt, gated[receipt.Vote]); err != nil {
				return err
			}
			ballots++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	e.logger.Info(
		"vote index rebuilt",
		"votes", votes,
		"ballots", ballots,
	)
	return votes, ballots, nil
}

func (e *Engine) indexVote(tx *ledger.Tx, addr ledger.Address, vote *Vote) error {
	idx := newVoteIndex(addr, vote)
	return tx.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
		return store.SetVoteIndex(idx, metaTxn)
	})
}

func newVoteIndex(addr ledger.Address, vote *Vote) *models.VoteIndex {
	return &models.VoteIndex{
		Address:           addr.Bytes(),
		Creator:           vote.Creator.Bytes(),
		VotingId:          vote.VotingId,
		Question:          vote.Question,
		Category:          uint8(vote.Category),
		Phase:             uint8(vote.Phase),
		IsActive:          vote.IsActive,
		Gated:             vote.Gated(),
		StartTime:         vote.StartTime,
		EndTime:           vote.EndTime,
		TotalParticipants: types.Uint64(vote.TotalParticipants),
		TotalVotePower:    types.Uint64(vote.TotalVotePower),
		WinningChoice:     vote.WinningChoice,
		CreatedAt:         vote.CreatedAt,
	}
}

func (e *Engine) indexBallot(tx *ledger.Tx, receipt *VoteRecord, gated bool) error {
	ballot := newBallot(receipt, gated)
	return tx.Index(func(store metadata.MetadataStore, metaTxn types.Txn) error {
		return store.AddBallot(ballot, metaTxn)
	})
}

func newBallot(receipt *VoteRecord, gated bool) *models.Ballot {
	return &models.Ballot{
		Vote:   receipt.Vote.Bytes(),
		Voter:  receipt.Voter.Bytes(),
		Choice: *receipt.VotedChoice,
		Power:  types.Uint64(receipt.VotePower),
		Gated:  gated,
		CastAt: *receipt.VotedAt,
	}
}
