package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fullmargin/factures/models"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
)

// HorizonClient is the subset of the horizon API the Stellar gateway needs.
type HorizonClient interface {
	AccountDetail(request horizonclient.AccountRequest) (horizon.Account, error)
	SubmitTransaction(transaction *txnbuild.Transaction) (horizon.Transaction, error)
}

type StellarConfig struct {
	HorizonURL        string
	NetworkPassphrase string
	SourceSecret      string
	// SettlementAccount receives every payment; the invoice number travels as the memo.
	SettlementAccount string
	AssetCode         string
	AssetIssuer       string
	Timeout           time.Duration
}

// Stellar settles invoice payments on the Stellar network from a treasury account.
type Stellar struct {
	client            HorizonClient
	source            *keypair.Full
	settlement        string
	asset             txnbuild.Asset
	networkPassphrase string
}

func NewStellar(cfg StellarConfig) (*Stellar, error) {
	client := &horizonclient.Client{
		HorizonURL: cfg.HorizonURL,
		HTTP:       &http.Client{Timeout: cfg.Timeout},
	}
	return NewStellarWithClient(client, cfg)
}

func NewStellarWithClient(client HorizonClient, cfg StellarConfig) (*Stellar, error) {
	source, err := keypair.ParseFull(cfg.SourceSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid source secret: %w", err)
	}
	if _, err := keypair.ParseAddress(cfg.SettlementAccount); err != nil {
		return nil, fmt.Errorf("invalid settlement account: %w", err)
	}

	var asset txnbuild.Asset
	if cfg.AssetCode == "" || cfg.AssetCode == "XLM" {
		asset = txnbuild.NativeAsset{}
	} else {
		asset = txnbuild.CreditAsset{Code: cfg.AssetCode, Issuer: cfg.AssetIssuer}
	}

	return &Stellar{
		client:            client,
		source:            source,
		settlement:        cfg.SettlementAccount,
		asset:             asset,
		networkPassphrase: cfg.NetworkPassphrase,
	}, nil
}

func (s *Stellar) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sourceAccount, err := s.client.AccountDetail(horizonclient.AccountRequest{
		AccountID: s.source.Address(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load source account: %w", err)
	}

	tx, err := s.buildPaymentTx(&sourceAccount, req)
	if err != nil {
		return nil, err
	}

	tx, err = tx.Sign(s.networkPassphrase, s.source)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txResp, err := s.client.SubmitTransaction(tx)
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil {
			return &ChargeResult{
				Success: false,
				Message: fmt.Sprintf("Stellar payment rejected: %s", herr.Problem.Title),
				Method:  models.MethodStellar,
			}, nil
		}
		return nil, fmt.Errorf("failed to submit transaction: %w", err)
	}

	return &ChargeResult{
		Success:   true,
		Reference: txResp.Hash,
		Message:   "Stellar payment settled",
		Method:    models.MethodStellar,
	}, nil
}

func (s *Stellar) buildPaymentTx(source txnbuild.Account, req ChargeRequest) (*txnbuild.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", req.Amount)
	}

	var memo txnbuild.Memo
	if req.InvoiceNumber != "" {
		memo = txnbuild.MemoText(req.InvoiceNumber)
	}

	tx, err := txnbuild.NewTransaction(
		txnbuild.TransactionParams{
			SourceAccount:        source,
			IncrementSequenceNum: true,
			BaseFee:              txnbuild.MinBaseFee,
			Memo:                 memo,
			Preconditions:        txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(60)},
			Operations: []txnbuild.Operation{
				&txnbuild.Payment{
					Destination: s.settlement,
					Amount:      req.Amount.StringFixed(7),
					Asset:       s.asset,
				},
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	return tx, nil
}
