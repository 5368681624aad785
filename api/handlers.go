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
	"fmt"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/ledger"
)

var (
	errBadRequest = errors.New("bad request")
	errDevMode    = errors.New("only available in dev mode")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func (a *Api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	a.writeErrorWithReceipt(w, r, err, "")
}

func (a *Api) writeErrorWithReceipt(
	w http.ResponseWriter,
	r *http.Request,
	err error,
	receiptID string,
) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: msg, ReceiptID: receiptID})
}

// statusForError maps ledger and contract errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, contract.ErrInvalidArgument),
		errors.Is(err, ledger.ErrCreditContract),
		errors.Is(err, ledger.ErrNotReadOnly):
		return http.StatusBadRequest
	case errors.Is(err, errDevMode):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnknownContract),
		errors.Is(err, ledger.ErrReceiptNotFound),
		errors.Is(err, contract.ErrUnknownFunction),
		errors.Is(err, contract.ErrUnknownKind):
		return http.StatusNotFound
	case contract.IsRejection(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return badRequest("invalid JSON body: %s", err)
	}
	return nil
}

func parseAddress(field string, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, badRequest("invalid %s address %q", field, value)
	}
	return common.HexToAddress(value), nil
}

func parseAmount(field string, value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	ret, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, badRequest("invalid %s %q", field, value)
	}
	return ret, nil
}

func (a *Api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Healthy: true})
}

func (a *Api) handleListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := a.ledger.Contracts(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractsResponse{Contracts: contracts})
}

func (a *Api) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req DeployRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	owner, err := parseAddress("owner", req.Owner)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	addr, err := a.ledger.Deploy(r.Context(), ledger.DeployRequest{
		Kind:  req.Kind,
		Args:  req.Args,
		Owner: owner,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DeployResponse{Address: addr.Hex()})
}

func (a *Api) handleGetContract(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("contract", chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	info, err := a.ledger.Contract(r.Context(), addr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (a *Api) handleCall(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("contract", chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req CallRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	value, err := parseAmount("value", req.Value)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	rcpt, err := a.ledger.Execute(r.Context(), ledger.CallRequest{
		Value:    value,
		Function: req.Function,
		Args:     req.Args,
		Contract: addr,
		Caller:   caller,
	})
	if err != nil {
		receiptID := ""
		if rcpt != nil {
			receiptID = rcpt.ID
		}
		a.writeErrorWithReceipt(w, r, err, receiptID)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (a *Api) handleQuery(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("contract", chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	req := ledger.QueryRequest{
		Function: chi.URLParam(r, "function"),
		Args:     query["arg"],
		Contract: addr,
	}
	if c := query.Get("caller"); c != "" {
		if req.Caller, err = parseAddress("caller", c); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	ret, err := a.ledger.Query(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Result: ret})
}

func (a *Api) handleContractReceipts(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("contract", chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	filter, err := parseReceiptFilter(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	filter.Contract = addr.Hex()
	receipts, err := a.ledger.Receipts(r.Context(), filter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReceiptsResponse{Receipts: receipts})
}

func (a *Api) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rcpt, err := a.ledger.Receipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rcpt)
}

func (a *Api) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("account", chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	acct, err := a.ledger.Account(r.Context(), addr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

func accountResponse(acct *ledger.Account) AccountResponse {
	return AccountResponse{
		Address: acct.Address.Hex(),
		Balance: acct.Balance.Dec(),
		Nonce:   acct.Nonce,
	}
}

func (a *Api) handleFaucet(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress("account", chi.URLParam(r, "address"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req FaucetRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if amount.IsZero() {
		a.writeError(w, r, badRequest("amount must be positive"))
		return
	}
	acct, err := a.ledger.Credit(r.Context(), addr, amount)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountResponse(acct))
}

func (a *Api) handleGetClock(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ClockResponse{Timestamp: a.ledger.Now()})
}

func (a *Api) handleSetClock(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.ledger.SetTime(req.Timestamp)
	writeJSON(w, http.StatusOK, ClockResponse{Timestamp: a.ledger.Now()})
}
