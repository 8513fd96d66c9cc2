package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mining-pool/pow-ledger/ledger"
	"github.com/mining-pool/pow-ledger/merkletree"
	"github.com/mining-pool/pow-ledger/storage"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/mining-pool/pow-ledger/utils"
	"github.com/mining-pool/pow-ledger/wallet"
	"github.com/pkg/errors"
)

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Code   int    `json:"code,omitempty"`
}

type transactionResponse struct {
	Status string `json:"status"`
	Hash   string `json:"hash"`
}

type mineRequest struct {
	Miner string `json:"miner"`
}

type balanceResponse struct {
	Address string              `json:"address"`
	Balance float64             `json:"balance"`
	History []types.Transaction `json:"history"`
}

type proofResponse struct {
	Block    uint64   `json:"block"`
	Tx       string   `json:"tx"`
	Position int      `json:"position"`
	Branch   []string `json:"branch"`
	Root     string   `json:"root"`
	Valid    bool     `json:"valid"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Blocks int    `json:"blocks"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(writer http.ResponseWriter, status int, v interface{}) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = writer.Write(utils.Jsonify(v))
}

func writeError(writer http.ResponseWriter, status int, err error) {
	resp := errorResponse{Status: "rejected", Error: err.Error()}

	var reason types.RejectReason
	if errors.As(err, &reason) {
		resp.Error = reason.String()
		resp.Code = int(reason)
	}

	writeJSON(writer, status, resp)
}

func blockIndex(r *http.Request) (uint64, bool) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	return index, err == nil
}

func (s *Server) indexFunc(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.availablePaths)
}

func (s *Server) chainFunc(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.chain.Summary())
}

func (s *Server) blocksFunc(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.chain.Blocks())
}

func (s *Server) blockFunc(writer http.ResponseWriter, r *http.Request) {
	index, _ := blockIndex(r)
	block, ok := s.chain.Block(index)
	if !ok {
		writeError(writer, http.StatusNotFound, errors.Errorf("block #%d not found", index))
		return
	}

	writeJSON(writer, http.StatusOK, block)
}

func (s *Server) proofFunc(writer http.ResponseWriter, r *http.Request) {
	index, _ := blockIndex(r)
	block, ok := s.chain.Block(index)
	if !ok {
		writeError(writer, http.StatusNotFound, errors.Errorf("block #%d not found", index))
		return
	}

	txHash := mux.Vars(r)["tx"]
	position := block.FindTransaction(txHash)
	if position < 0 {
		writeError(writer, http.StatusNotFound, errors.Errorf("transaction %s not in block #%d", txHash, index))
		return
	}

	branch, _ := block.MerkleTree().Branch(position)
	writeJSON(writer, http.StatusOK, proofResponse{
		Block:    index,
		Tx:       txHash,
		Position: position,
		Branch:   branch,
		Root:     block.MerkleRoot(),
		Valid:    merkletree.VerifyBranch(txHash, position, branch, block.MerkleRoot()),
	})
}

func (s *Server) pendingFunc(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.chain.Pending())
}

func (s *Server) transactionFunc(writer http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		return
	}

	remote := remoteIP(r)
	if s.banning != nil && s.banning.CheckBan(remote) {
		writeError(writer, http.StatusForbidden, errors.New("address is banned"))
		return
	}

	var tx types.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		s.recordSubmission(remote, false)
		writeError(writer, http.StatusBadRequest, errors.Wrap(err, "invalid JSON format"))
		return
	}

	if err := s.chain.SubmitTransaction(&tx); err != nil {
		s.recordSubmission(remote, false)
		writeError(writer, http.StatusBadRequest, err)
		return
	}
	s.recordSubmission(remote, true)

	hash := tx.Hash
	if hash == "" {
		hash = tx.ComputeHash()
	}

	writeJSON(writer, http.StatusAccepted, transactionResponse{Status: "accepted", Hash: hash})
}

func (s *Server) recordSubmission(remote string, valid bool) {
	if s.banning == nil {
		return
	}
	s.banning.ShouldBan(remote, valid)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) mineFunc(writer http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		return
	}

	var req mineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(writer, http.StatusBadRequest, errors.Wrap(err, "invalid JSON format"))
		return
	}

	block, err := s.chain.MinePendingTransactions(r.Context(), req.Miner)
	if err != nil {
		if errors.Is(err, types.RejectMissingParty) {
			writeError(writer, http.StatusBadRequest, err)
		} else {
			writeError(writer, http.StatusServiceUnavailable, err)
		}
		return
	}

	writeJSON(writer, http.StatusCreated, block)
}

func (s *Server) balanceFunc(writer http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	writeJSON(writer, http.StatusOK, balanceResponse{
		Address: address,
		Balance: s.chain.GetBalance(address),
		History: s.chain.History(address),
	})
}

func (s *Server) rewardFunc(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]float64{"reward": s.chain.GetMiningReward()})
}

func (s *Server) validateFunc(writer http.ResponseWriter, _ *http.Request) {
	resp := validateResponse{Valid: true, Blocks: s.chain.Len()}
	if err := s.chain.Validate(); err != nil {
		resp.Valid = false
		resp.Error = err.Error()

		var verr *ledger.ValidationError
		if errors.As(err, &verr) {
			log.Warnf("chain invalid at block #%d: %s", verr.Index, verr.Reason)
		}
	}

	writeJSON(writer, http.StatusOK, resp)
}

func (s *Server) walletFunc(writer http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		return
	}

	w, err := wallet.CreateNew()
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err)
		return
	}

	writeJSON(writer, http.StatusCreated, w.Export())
}

func (s *Server) statsFunc(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, s.chain.Stats())
}

func (s *Server) configIndexFunc(writer http.ResponseWriter, _ *http.Request) {
	keys := make([]string, 0)
	for k := range s.config {
		keys = append(keys, "/config/"+k)
	}

	writeJSON(writer, http.StatusOK, keys)
}

func (s *Server) configFunc(writer http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	conf, ok := s.config[key]
	if !ok {
		writeError(writer, http.StatusNotFound, errors.Errorf("no config section %s", key))
		return
	}

	writeJSON(writer, http.StatusOK, conf)
}

func (s *Server) archiveStatsFunc(writer http.ResponseWriter, r *http.Request) {
	stats, err := s.storage.GetStats(r.Context())
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err)
		return
	}

	writeJSON(writer, http.StatusOK, stats)
}

func (s *Server) archiveRewardsFunc(writer http.ResponseWriter, r *http.Request) {
	rewards, err := s.storage.GetMinerRewards(r.Context())
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err)
		return
	}

	writeJSON(writer, http.StatusOK, rewards)
}

func (s *Server) archiveBlockFunc(writer http.ResponseWriter, r *http.Request) {
	index, _ := blockIndex(r)
	block, err := s.storage.GetBlock(r.Context(), index)
	if errors.Is(err, storage.ErrBlockNotFound) {
		writeError(writer, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err)
		return
	}

	writeJSON(writer, http.StatusOK, block)
}
