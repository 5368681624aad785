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
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/database"
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/database/types"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DeployRequest struct {
	Kind  string
	Args  []string
	Owner common.Address
}

type CallRequest struct {
	// Value is the payment attached to the call, nil for none
	Value    *uint256.Int
	Function string
	Args     []string
	Contract common.Address
	Caller   common.Address
}

type QueryRequest struct {
	Function string
	Args     []string
	Contract common.Address
	// Caller is optional and only visible to the contract as Host.Caller
	Caller common.Address
}

// Deploy creates a contract of the given kind owned by req.Owner. The address
// is derived from the owner address and nonce. Nothing is stored if Init
// fails
func (ls *LedgerState) Deploy(
	ctx context.Context,
	req DeployRequest,
) (common.Address, error) {
	_, span := ls.tracer.Start(
		ctx,
		"ledger.Deploy",
		trace.WithAttributes(
			attribute.String("contract.kind", req.Kind),
			attribute.String("owner", req.Owner.Hex()),
		),
	)
	defer span.End()
	c, err := contract.Lookup(req.Kind)
	if err != nil {
		return common.Address{}, spanError(span, err)
	}
	ls.Lock()
	defer ls.Unlock()
	now := ls.Now()
	var addr common.Address
	var host *callHost
	err = ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		owner, err := ls.getAccount(req.Owner, txn)
		if err != nil {
			return err
		}
		addr = crypto.CreateAddress(req.Owner, owner.Nonce)
		if _, err := ls.getContract(addr, txn); err == nil {
			return fmt.Errorf("contract already deployed at %s", addr.Hex())
		} else if !errors.Is(err, ErrUnknownContract) {
			return err
		}
		rec := &ContractRecord{
			Kind:      req.Kind,
			Owner:     req.Owner,
			Args:      req.Args,
			CreatedAt: now,
			Nonce:     owner.Nonce,
		}
		host = ls.newCallHost(
			txn,
			rec,
			addr,
			req.Owner,
			new(uint256.Int),
			new(uint256.Int),
			now,
		)
		if err := c.Init(host, contract.Args(req.Args)); err != nil {
			return err
		}
		owner.Nonce++
		if err := ls.putAccount(owner, txn); err != nil {
			return err
		}
		if err := ls.putContract(addr, rec, txn); err != nil {
			return err
		}
		return ls.db.SaveCampaign(campaignModel(addr, rec), txn)
	})
	if err != nil {
		ls.config.Logger.Debug(
			"deploy failed",
			"kind", req.Kind,
			"owner", req.Owner.Hex(),
			"error", err,
			"component", "ledger",
		)
		return common.Address{}, spanError(span, err)
	}
	ls.metrics.deploysTotal.WithLabelValues(req.Kind).Inc()
	ls.metrics.contracts.Inc()
	span.SetAttributes(attribute.String("contract.address", addr.Hex()))
	ls.config.Logger.Info(
		"deployed contract",
		"address", addr.Hex(),
		"kind", req.Kind,
		"owner", req.Owner.Hex(),
		"component", "ledger",
	)
	ls.publish(CampaignDeployedEventType, CampaignDeployedEvent{
		Address:        addr.Hex(),
		Kind:           req.Kind,
		Owner:          req.Owner.Hex(),
		BlockTimestamp: now,
	})
	ls.publishContractEvents(host, addr, req.Kind, "")
	return addr, nil
}

// Execute runs a contract function as req.Caller. The attached value moves
// from the caller to the contract only if the function succeeds. Every call
// is recorded as a receipt; for rejected calls the receipt is returned along
// with the error
func (ls *LedgerState) Execute(
	ctx context.Context,
	req CallRequest,
) (*Receipt, error) {
	_, span := ls.tracer.Start(
		ctx,
		"ledger.Execute",
		trace.WithAttributes(
			attribute.String("contract.address", req.Contract.Hex()),
			attribute.String("function", req.Function),
			attribute.String("caller", req.Caller.Hex()),
		),
	)
	defer span.End()
	value := req.Value
	if value == nil {
		value = new(uint256.Int)
	}
	ls.Lock()
	defer ls.Unlock()
	start := time.Now()
	now := ls.Now()
	rcpt := &models.Receipt{
		ID:             uuid.NewString(),
		Contract:       req.Contract.Hex(),
		Caller:         req.Caller.Hex(),
		Function:       req.Function,
		Args:           marshalJSON(req.Args),
		Value:          types.NewAmount(value),
		BlockTimestamp: types.Uint64(now),
		CreatedAt:      time.Now(),
	}
	var host *callHost
	err := ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		rec, err := ls.getContract(req.Contract, txn)
		if err != nil {
			return err
		}
		rcpt.Kind = rec.Kind
		if req.Caller == req.Contract {
			return ErrSelfCall
		}
		c, err := contract.Lookup(rec.Kind)
		if err != nil {
			return err
		}
		ep, err := c.Endpoints().Lookup(req.Function)
		if err != nil {
			return err
		}
		if !ep.Payable && !value.IsZero() {
			return contract.ErrNotPayable
		}
		caller, err := ls.getAccount(req.Caller, txn)
		if err != nil {
			return err
		}
		if caller.Balance.Lt(value) {
			return ErrInsufficientFunds
		}
		caller.Balance = new(uint256.Int).Sub(caller.Balance, value)
		caller.Nonce++
		if err := ls.putAccount(caller, txn); err != nil {
			return err
		}
		self, err := ls.getAccount(req.Contract, txn)
		if err != nil {
			return err
		}
		host = ls.newCallHost(
			txn,
			rec,
			req.Contract,
			req.Caller,
			value,
			self.Balance,
			now,
		)
		result, err := ep.Handler(host, contract.Args(req.Args))
		if err != nil {
			return err
		}
		// Payment lands once the handler has accepted it
		newBalance, overflow := new(uint256.Int).AddOverflow(host.balance, value)
		if overflow {
			return fmt.Errorf("balance overflow for %s", req.Contract.Hex())
		}
		self.Balance = newBalance
		if err := ls.putAccount(self, txn); err != nil {
			return err
		}
		if result != nil {
			data, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			rcpt.Result = string(data)
		}
		rcpt.Success = true
		return ls.db.SaveReceipt(rcpt, txn)
	})
	ls.metrics.callDuration.WithLabelValues(rcpt.Kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return ls.recordFailure(span, rcpt, err)
	}
	ls.metrics.callsTotal.WithLabelValues(rcpt.Kind, req.Function, callResultSuccess).Inc()
	ls.config.Logger.Debug(
		"executed call",
		"receipt", rcpt.ID,
		"contract", rcpt.Contract,
		"function", req.Function,
		"caller", rcpt.Caller,
		"value", value.Dec(),
		"component", "ledger",
	)
	ls.publishContractEvents(host, req.Contract, rcpt.Kind, rcpt.ID)
	ls.publish(CampaignCalledEventType, CampaignCalledEvent{
		ReceiptID:      rcpt.ID,
		Contract:       rcpt.Contract,
		Kind:           rcpt.Kind,
		Caller:         rcpt.Caller,
		Function:       req.Function,
		Value:          value.Dec(),
		BlockTimestamp: now,
	})
	ret := receiptFromModel(rcpt)
	return &ret, nil
}

// recordFailure stores the receipt of a rolled back call in its own
// metadata-only transaction
func (ls *LedgerState) recordFailure(
	span trace.Span,
	rcpt *models.Receipt,
	callErr error,
) (*Receipt, error) {
	result := callResultError
	if IsRejection(callErr) {
		result = callResultRejected
	}
	ls.metrics.callsTotal.WithLabelValues(rcpt.Kind, rcpt.Function, result).Inc()
	rcpt.Success = false
	rcpt.Result = ""
	rcpt.Error = callErr.Error()
	err := database.NewMetadataOnlyTxn(ls.db).Do(func(txn *database.Txn) error {
		return ls.db.SaveReceipt(rcpt, txn)
	})
	if err != nil {
		ls.config.Logger.Error(
			"failed to save receipt",
			"receipt", rcpt.ID,
			"error", err,
			"component", "ledger",
		)
		return nil, spanError(span, errors.Join(callErr, err))
	}
	ls.config.Logger.Debug(
		"call rejected",
		"receipt", rcpt.ID,
		"contract", rcpt.Contract,
		"function", rcpt.Function,
		"error", callErr,
		"component", "ledger",
	)
	ret := receiptFromModel(rcpt)
	return &ret, spanError(span, callErr)
}

// Query runs a read-only function. It does not create a receipt
func (ls *LedgerState) Query(
	ctx context.Context,
	req QueryRequest,
) (any, error) {
	_, span := ls.tracer.Start(
		ctx,
		"ledger.Query",
		trace.WithAttributes(
			attribute.String("contract.address", req.Contract.Hex()),
			attribute.String("function", req.Function),
		),
	)
	defer span.End()
	ls.RLock()
	defer ls.RUnlock()
	txn := ls.db.Transaction(false)
	defer txn.Release()
	rec, err := ls.getContract(req.Contract, txn)
	if err != nil {
		return nil, spanError(span, err)
	}
	c, err := contract.Lookup(rec.Kind)
	if err != nil {
		return nil, spanError(span, err)
	}
	ep, err := c.Endpoints().Lookup(req.Function)
	if err != nil {
		return nil, spanError(span, err)
	}
	if !ep.ReadOnly {
		return nil, spanError(
			span,
			fmt.Errorf("%w: %s", ErrNotReadOnly, req.Function),
		)
	}
	self, err := ls.getAccount(req.Contract, txn)
	if err != nil {
		return nil, spanError(span, err)
	}
	host := ls.newCallHost(
		txn,
		rec,
		req.Contract,
		req.Caller,
		new(uint256.Int),
		self.Balance,
		ls.Now(),
	)
	ret, err := ep.Handler(host, contract.Args(req.Args))
	if err != nil {
		return nil, spanError(span, err)
	}
	return ret, nil
}

func (ls *LedgerState) publishContractEvents(
	host *callHost,
	addr common.Address,
	kind string,
	receiptID string,
) {
	if host == nil {
		return
	}
	for _, evt := range host.events {
		ls.publish(ContractEventType, ContractEvent{
			Data:      evt.data,
			ReceiptID: receiptID,
			Contract:  addr.Hex(),
			Kind:      kind,
			Name:      evt.name,
		})
	}
}

// IsRejection returns true for errors caused by the request rather than by
// the ledger: contract guards and configuration errors, bad arguments and
// unknown contracts or functions
func IsRejection(err error) bool {
	return contract.IsRejection(err) ||
		errors.Is(err, contract.ErrInvalidArgument) ||
		errors.Is(err, contract.ErrUnknownFunction) ||
		errors.Is(err, contract.ErrUnknownKind) ||
		errors.Is(err, contract.ErrNotInitialized) ||
		errors.Is(err, ErrUnknownContract) ||
		errors.Is(err, ErrNotReadOnly)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func marshalJSON(v []string) string {
	if v == nil {
		v = []string{}
	}
	// a []string always encodes
	data, _ := json.Marshal(v)
	return string(data)
}
