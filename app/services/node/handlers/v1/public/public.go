// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	v1 "github.com/Caraveo/ZiaCoin-Network/business/web/v1"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/ledger"
	"github.com/Caraveo/ZiaCoin-Network/foundation/blockchain/state"
	"github.com/Caraveo/ZiaCoin-Network/foundation/events"
	"github.com/Caraveo/ZiaCoin-Network/foundation/nameservice"
	"github.com/Caraveo/ZiaCoin-Network/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)

	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction adds a new signed transaction to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var app newTx
	if err := web.Decode(r, &app); err != nil {
		return err
	}

	signedTx := ledger.SignedTx{
		Tx: ledger.Tx{
			Sender:    ledger.AccountID(app.Sender),
			Recipient: ledger.AccountID(app.Recipient),
			Amount:    app.Amount,
			TimeStamp: app.Timestamp,
		},
		Signature: app.Signature,
	}

	h.Log.Infow("add wallet tran", "traceid", v.TraceID, "tx", signedTx)
	idx, err := h.State.UpsertWalletTransaction(signedTx)
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
		Block  uint64 `json:"block"`
	}{
		Status: "transaction added to mempool",
		Block:  idx,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining signals the node to mine the pending transactions.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if h.State.QueryMempoolLength() == 0 {
		return v1.NewRequestError(errors.New("no transactions in mempool"), http.StatusBadRequest)
	}

	h.State.SignalMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Chain returns the blocks in the requested range, defaulting to the
// entire chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var start uint64
	end := h.State.RetrieveHeight()

	if fromStr := r.URL.Query().Get("from"); fromStr != "" {
		v, err := strconv.ParseUint(fromStr, 10, 64)
		if err != nil {
			return v1.NewRequestError(fmt.Errorf("invalid from value: %w", err), http.StatusBadRequest)
		}
		start = v
	}

	if toStr := r.URL.Query().Get("to"); toStr != "" {
		v, err := strconv.ParseUint(toStr, 10, 64)
		if err != nil {
			return v1.NewRequestError(fmt.Errorf("invalid to value: %w", err), http.StatusBadRequest)
		}
		end = v
	}

	blocks := h.State.QueryBlocksByRange(start, end)
	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// ValidateChain walks the chain and reports the first violation found.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := chainStatus{
		Valid:  true,
		Height: h.State.RetrieveHeight(),
	}

	if err := h.State.ValidateChain(); err != nil {
		status.Valid = false
		status.Error = err.Error()
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Balance returns the folded balance for the specified account.
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account, err := ledger.ToAccountID(web.Param(r, "address"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	bal := balance{
		Account: account,
		Name:    h.NS.Lookup(account),
		Balance: h.State.QueryBalance(account),
	}

	return web.Respond(ctx, w, bal, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pool := h.State.RetrieveMempool()

	trans := make([]tx, len(pool))
	for i, tran := range pool {
		trans[i] = tx{
			Sender:        tran.Sender,
			SenderName:    h.NS.Lookup(tran.Sender),
			Recipient:     tran.Recipient,
			RecipientName: h.NS.Lookup(tran.Recipient),
			Amount:        tran.Amount,
			TimeStamp:     tran.TimeStamp,
			Signature:     tran.Signature,
		}
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Peers returns summaries for every peer in the routing table.
func (h Handlers) Peers(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.KnownPeers(), http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	latest := h.State.RetrieveLatestBlock()

	status := nodeStatus{
		Version:       h.State.RetrieveVersion(),
		Host:          h.State.RetrieveHost(),
		NodeID:        h.State.RetrieveNodeID().String(),
		Height:        h.State.RetrieveHeight(),
		LatestHash:    latest.Hash,
		Difficulty:    h.State.RetrieveDifficulty(),
		Mempool:       h.State.QueryMempoolLength(),
		ActivePeers:   h.State.ActivePeerCount(),
		MiningAllowed: h.State.IsMiningAllowed(),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
