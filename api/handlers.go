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

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/blinklabs-io/taleledger/database/models"
	"github.com/blinklabs-io/taleledger/governance"
	"github.com/blinklabs-io/taleledger/ledger"
)

func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

//nolint:unparam
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "BadRequest", message)
}

// decodeSigned reads the request body, checks its signature and decodes it
// into dest. It writes the error response itself and reports whether the
// caller may continue.
func (s *Server) decodeSigned(
	w http.ResponseWriter,
	r *http.Request,
	dest any,
) (ledger.SignerSet, bool) {
	body, signers, err := readSignedBody(
		r,
		s.config.Clock.Now(),
		s.config.SignatureWindow,
	)
	if err != nil {
		var lerr *ledger.Error
		if errors.Is(err, errMissingSignature) ||
			errors.Is(err, errStaleSignature) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		} else if errors.As(err, &lerr) {
			s.writeLedgerError(w, err)
		} else {
			writeBadRequest(w, err.Error())
		}
		return ledger.SignerSet{}, false
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return ledger.SignerSet{}, false
	}
	return signers, true
}

// pathAddress parses the {address} path segment
func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request) (ledger.Address, bool) {
	addr, err := ledger.ParseAddress(r.PathValue("address"))
	if err != nil {
		s.writeLedgerError(w, err)
		return ledger.ZeroAddress, false
	}
	return addr, true
}

func summarize(rows []models.VoteIndex) []VoteSummary {
	ret := make([]VoteSummary, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, newVoteSummary(row))
	}
	return ret
}

// handleHealth handles GET /health
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{IsHealthy: true})
}

// handleCreateVote handles POST /api/v0/votes
func (s *Server) handleCreateVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req CreateVoteRequest
	signers, ok := s.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	category, err := governance.ParseCategory(req.Category)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	addr, err := s.votes.CreateVote(
		r.Context(),
		signers,
		req.Creator,
		governance.CreateVoteParams{
			VotingId:         req.VotingId,
			Question:         req.Question,
			Description:      req.Description,
			Choices:          req.Choices,
			StartTime:        time.Unix(req.StartTime, 0),
			EndTime:          time.Unix(req.EndTime, 0),
			GatingMint:       req.GatingMint,
			RegularVotePower: req.RegularVotePower,
			NftVotePower:     req.NftVotePower,
			Category:         category,
			Tags:             req.Tags,
		},
	)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AddressResponse{Address: addr})
}

// handleQueryVotes handles GET /api/v0/votes. Filters: creator, category,
// status, active, plus the usual pagination parameters.
func (s *Server) handleQueryVotes(
	w http.ResponseWriter,
	r *http.Request,
) {
	params, err := ParsePagination(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	filter := models.VoteFilter{
		Page:       params.Page,
		PageSize:   params.Count,
		Descending: params.Order == PaginationOrderDesc,
	}
	query := r.URL.Query()
	if v := query.Get("creator"); v != "" {
		creator, err := ledger.ParseAddress(v)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		filter.Creator = creator.Bytes()
	}
	if v := query.Get("category"); v != "" {
		category, err := governance.ParseCategory(v)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		tmp := uint8(category)
		filter.Category = &tmp
	}
	if v := query.Get("status"); v != "" {
		phase, err := governance.ParsePhase(v)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		tmp := uint8(phase)
		filter.Phase = &tmp
	}
	if v := query.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "invalid active filter")
			return
		}
		filter.IsActive = &active
	}
	rows, total, err := s.votes.QueryVotes(r.Context(), filter)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	SetPaginationHeaders(w, total, params)
	writeJSON(w, http.StatusOK, summarize(rows))
}

// handleGetVote handles GET /api/v0/votes/{address}
func (s *Server) handleGetVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	vote, err := s.votes.GetVote(r.Context(), addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVoteResponse(addr, vote))
}

// handleCastVote handles POST /api/v0/votes/{address}/ballots
func (s *Server) handleCastVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	var req CastVoteRequest
	signers, ok := s.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	receipt, err := s.votes.CastVote(r.Context(), signers, governance.CastVoteParams{
		Vote:         addr,
		Voter:        req.Voter,
		Choice:       req.Choice,
		TokenAccount: req.TokenAccount,
	})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVoteRecordResponse(receipt))
}

// handleFinalizeVote handles POST /api/v0/votes/{address}/finalize
func (s *Server) handleFinalizeVote(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	var req FinalizeVoteRequest
	signers, ok := s.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	vote, err := s.votes.FinalizeVote(r.Context(), signers, addr, req.Creator)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVoteResponse(addr, vote))
}

// handleResults handles GET /api/v0/votes/{address}/results
func (s *Server) handleResults(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	res, err := s.votes.GetResults(r.Context(), addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		Address:           res.Address,
		Choices:           res.Choices,
		Tally:             res.Tally,
		WinningChoice:     res.WinningChoice,
		TotalVotePower:    res.TotalVotePower,
		TotalParticipants: res.TotalParticipants,
		RegularVoters:     res.RegularVoters,
		NftVoters:         res.NftVoters,
		Phase:             res.Phase.String(),
	})
}

// handleListVotes handles POST /api/v0/vote-lists. The owner's filter is
// saved on the ledger, then the matching page of the index is returned.
func (s *Server) handleListVotes(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req ListVotesRequest
	signers, ok := s.decodeSigned(w, r, &req)
	if !ok {
		return
	}
	status, err := governance.ParsePhase(req.Status)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	params := governance.ListVotesParams{
		Status:   status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.Category != nil {
		category, err := governance.ParseCategory(*req.Category)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		params.Category = &category
	}
	list, err := s.votes.ListVotes(r.Context(), signers, req.Owner, params)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	ret := VoteListResponse{
		Owner:       list.Owner,
		Status:      list.Status.String(),
		Page:        list.Page,
		PageSize:    list.PageSize,
		LastUpdated: list.LastUpdated,
	}
	if list.Category != nil {
		name := list.Category.String()
		ret.Category = &name
	}
	rows, total, err := s.votes.QueryVotes(r.Context(), list.Filter())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	ret.Total = total
	ret.Votes = summarize(rows)
	writeJSON(w, http.StatusOK, ret)
}

// handleBallots handles GET /api/v0/votes/{address}/ballots
func (s *Server) handleBallots(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	// The ballot index has no rows for an unknown vote, so check the vote
	// itself to tell the two apart
	if _, err := s.votes.GetVote(r.Context(), addr); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	rows, err := s.votes.Ballots(r.Context(), addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	ret := make([]BallotResponse, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, newBallotResponse(row))
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleVoteRecord handles GET /api/v0/votes/{address}/ballots/{voter}
func (s *Server) handleVoteRecord(
	w http.ResponseWriter,
	r *http.Request,
) {
	addr, ok := s.pathAddress(w, r)
	if !ok {
		return
	}
	voter, err := ledger.ParseAddress(r.PathValue("voter"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	receipt, err := s.votes.GetVoteRecord(r.Context(), addr, voter)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newVoteRecordResponse(receipt))
}
