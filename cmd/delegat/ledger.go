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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jgualp/eleccions-a-delegat/contract"
	"github.com/jgualp/eleccions-a-delegat/database/models"
	"github.com/jgualp/eleccions-a-delegat/internal/config"
	"github.com/jgualp/eleccions-a-delegat/internal/node"
	"github.com/jgualp/eleccions-a-delegat/ledger"
	"github.com/spf13/cobra"
)

var errFaucetDevMode = errors.New("faucet requires dev mode")

// withLedger opens the configured ledger for an offline command. A nonzero
// timestamp pins the block timestamp for the command
func withLedger(
	cmd *cobra.Command,
	timestamp uint64,
	fn func(*ledger.LedgerState) error,
) error {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return errors.New("no config found in context")
	}
	ls, err := node.OpenLedger(cfg, offlineLogger())
	if err != nil {
		return err
	}
	if timestamp != 0 {
		ls.SetTime(timestamp)
	}
	err = fn(ls)
	return errors.Join(err, ls.Close())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	ret, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return ret, nil
}

// normalizeAddress returns the checksummed form stored in receipts
func normalizeAddress(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s).Hex(), nil
}

func deployCommand() *cobra.Command {
	var owner string
	var timestamp uint64
	cmd := &cobra.Command{
		Use:   "deploy <kind> [args...]",
		Short: "Deploy a crowdfunding or election campaign",
		Long: "Deploy a campaign owned by --owner. Crowdfunding takes target, " +
			"deadline, min_fund, max_deposit_per_donor and max_target; election " +
			"takes start and end timestamps",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerAddr, err := contract.ParseAddress(owner)
			if err != nil {
				return err
			}
			return withLedger(cmd, timestamp, func(ls *ledger.LedgerState) error {
				addr, err := ls.Deploy(cmd.Context(), ledger.DeployRequest{
					Kind:  args[0],
					Args:  args[1:],
					Owner: ownerAddr,
				})
				if err != nil {
					return err
				}
				fmt.Println(addr.Hex())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner address")
	cmd.Flags().Uint64Var(&timestamp, "timestamp", 0, "block timestamp override")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func callCommand() *cobra.Command {
	var caller, value string
	var timestamp uint64
	cmd := &cobra.Command{
		Use:   "call <contract> <function> [args...]",
		Short: "Call a contract function",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contractAddr, err := contract.ParseAddress(args[0])
			if err != nil {
				return err
			}
			callerAddr, err := contract.ParseAddress(caller)
			if err != nil {
				return err
			}
			amount, err := parseAmount(value)
			if err != nil {
				return err
			}
			return withLedger(cmd, timestamp, func(ls *ledger.LedgerState) error {
				rcpt, err := ls.Execute(cmd.Context(), ledger.CallRequest{
					Value:    amount,
					Function: args[1],
					Args:     args[2:],
					Contract: contractAddr,
					Caller:   callerAddr,
				})
				if rcpt != nil {
					if printErr := printJSON(rcpt); printErr != nil {
						return printErr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "caller address")
	cmd.Flags().StringVar(&value, "value", "", "payment attached to the call")
	cmd.Flags().Uint64Var(&timestamp, "timestamp", 0, "block timestamp override")
	_ = cmd.MarkFlagRequired("caller")
	return cmd
}

func queryCommand() *cobra.Command {
	var caller string
	var timestamp uint64
	cmd := &cobra.Command{
		Use:   "query <contract> <function> [args...]",
		Short: "Run a read-only contract function",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contractAddr, err := contract.ParseAddress(args[0])
			if err != nil {
				return err
			}
			req := ledger.QueryRequest{
				Function: args[1],
				Args:     args[2:],
				Contract: contractAddr,
			}
			if caller != "" {
				if req.Caller, err = contract.ParseAddress(caller); err != nil {
					return err
				}
			}
			return withLedger(cmd, timestamp, func(ls *ledger.LedgerState) error {
				ret, err := ls.Query(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(ret)
			})
		},
	}
	cmd.Flags().StringVar(&caller, "caller", "", "caller address")
	cmd.Flags().Uint64Var(&timestamp, "timestamp", 0, "block timestamp override")
	return cmd
}

func faucetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "faucet <address> <amount>",
		Short: "Credit an account (development only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg := config.FromContext(cmd.Context()); cfg == nil || !cfg.DevMode {
				return errFaucetDevMode
			}
			addr, err := contract.ParseAddress(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			return withLedger(cmd, 0, func(ls *ledger.LedgerState) error {
				acct, err := ls.Credit(cmd.Context(), addr, amount)
				if err != nil {
					return err
				}
				return printJSON(accountOutput(acct))
			})
		},
	}
}

type accountJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

func accountOutput(acct *ledger.Account) accountJSON {
	return accountJSON{
		Address: acct.Address.Hex(),
		Balance: acct.Balance.Dec(),
		Nonce:   acct.Nonce,
	}
}

func accountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account <address>",
		Short: "Show the balance and nonce of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := contract.ParseAddress(args[0])
			if err != nil {
				return err
			}
			return withLedger(cmd, 0, func(ls *ledger.LedgerState) error {
				acct, err := ls.Account(cmd.Context(), addr)
				if err != nil {
					return err
				}
				return printJSON(accountOutput(acct))
			})
		},
	}
}

func receiptsCommand() *cobra.Command {
	var contractFlag, callerFlag, function, status string
	var limit int
	cmd := &cobra.Command{
		Use:   "receipts [id]",
		Short: "Show a receipt, or list receipts newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.ReceiptFilter{
				Function: function,
				Limit:    limit,
			}
			var err error
			if filter.Contract, err = normalizeAddress(contractFlag); err != nil {
				return err
			}
			if filter.Caller, err = normalizeAddress(callerFlag); err != nil {
				return err
			}
			switch status {
			case "":
			case "success":
				filter.OnlySuccessful = true
			case "failed":
				filter.OnlyFailed = true
			default:
				return fmt.Errorf("invalid status %q", status)
			}
			return withLedger(cmd, 0, func(ls *ledger.LedgerState) error {
				if len(args) == 1 {
					rcpt, err := ls.Receipt(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return printJSON(rcpt)
				}
				receipts, err := ls.Receipts(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return printJSON(receipts)
			})
		},
	}
	cmd.Flags().StringVar(&contractFlag, "contract", "", "only receipts of this contract")
	cmd.Flags().StringVar(&callerFlag, "caller", "", "only receipts of this caller")
	cmd.Flags().StringVar(&function, "function", "", "only receipts of this function")
	cmd.Flags().StringVar(&status, "status", "", "success or failed")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of receipts")
	return cmd
}
