package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/shieldedlabs/midenbridge/rpc/types"
)

type BridgeClientInterface interface {
	ClaimDeposit(identity, secret string) (*types.ClaimResult, error)
	DepositStatus(commitment string) (*types.DepositStatus, error)
	WithdrawalStatus(commitment string) (*types.WithdrawalStatus, error)
	UnclaimedWithdrawals() ([]types.WithdrawalStatus, error)
	BridgeBalance() (*types.BridgeBalance, error)
}

func (c *Client) ClaimDeposit(identity, secret string) (*types.ClaimResult, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_claimDeposit", identity, secret)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result types.ClaimResult
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) DepositStatus(commitment string) (*types.DepositStatus, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_depositStatus", commitment)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result types.DepositStatus
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) WithdrawalStatus(commitment string) (*types.WithdrawalStatus, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_withdrawalStatus", commitment)
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result types.WithdrawalStatus
	return &result, json.Unmarshal(response.Result, &result)
}

func (c *Client) UnclaimedWithdrawals() ([]types.WithdrawalStatus, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_unclaimedWithdrawals")
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result []types.WithdrawalStatus
	return result, json.Unmarshal(response.Result, &result)
}

func (c *Client) BridgeBalance() (*types.BridgeBalance, error) {
	response, err := rpc.JSONRPCCall(c.url, "bridge_bridgeBalance")
	if err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	var result types.BridgeBalance
	return &result, json.Unmarshal(response.Result, &result)
}
