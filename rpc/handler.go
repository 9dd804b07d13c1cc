package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tolelom/latticenode/core"
	"github.com/tolelom/latticenode/crypto"
	"github.com/tolelom/latticenode/ledger"
	"github.com/tolelom/latticenode/store"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	ledger *ledger.Ledger
	store  store.Store
}

// NewHandler creates an RPC Handler.
func NewHandler(lg *ledger.Ledger, st store.Store) *Handler {
	return &Handler{ledger: lg, store: st}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "account_info":
		return h.accountInfo(req)

	case "block":
		return h.block(req)

	case "block_count":
		return okResponse(req.ID, map[string]uint64{
			"count":    h.ledger.Cache.BlockCount(),
			"cemented": h.ledger.Cache.CementedCount(),
		})

	case "process":
		return h.process(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) accountInfo(req Request) Response {
	var params struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	account, err := crypto.AccountFromHex(params.Account)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	txn := h.store.NewRead()
	defer txn.Discard()

	info, ok, err := txn.GetAccount(account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if !ok {
		return errResponse(req.ID, CodeInvalidParams, "account not found")
	}
	confInfo, hasConf, err := txn.GetConfirmationHeight(account)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	result := map[string]any{
		"account":        account.Hex(),
		"head":           info.Head.Hex(),
		"representative": info.Representative.Hex(),
		"open_block":     info.OpenBlock.Hex(),
		"balance":        info.Balance.String(),
		"block_count":    info.BlockCount,
		"epoch":          info.Epoch,
	}
	if hasConf {
		result["confirmation_height"] = confInfo.Height
		result["confirmed_frontier"] = confInfo.Frontier.Hex()
	}
	return okResponse(req.ID, result)
}

func (h *Handler) block(req Request) Response {
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	hash, err := core.HashFromHex(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	txn := h.store.NewRead()
	defer txn.Discard()

	b, err := txn.GetBlock(hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, "block not found")
	}
	return okResponse(req.ID, b)
}

// process accepts a submitted block, validates and inserts it against the
// ledger directly (not via BlockProcessor's queues — a wallet-submitted
// block gets a synchronous accept/reject decision, spec §7 "the RPC layer
// maps the taxonomy to textual error strings"), and reports the resulting
// status.
func (h *Handler) process(req Request) Response {
	var b core.Block
	if err := json.Unmarshal(req.Params, &b); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}

	ins, status, err := h.ledger.Process(context.Background(), store.WriterWallet, &b)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	if status != core.StatusProgress {
		return errResponse(req.ID, CodeInvalidParams, status.String())
	}
	return okResponse(req.ID, map[string]string{"hash": ins.Hash.Hex(), "status": status.String()})
}
