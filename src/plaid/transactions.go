package plaid

import (
	"context"
	"strconv"

	"famfin-server/src/logger"
	"famfin-server/src/models"

	"github.com/plaid/plaid-go/v41/plaid"
)

const (
	syncPageSize      = 500
	mutationErrorCode = "TRANSACTIONS_SYNC_MUTATION_DURING_PAGINATION"
	maxSyncRestarts   = 3
)

type syncPageFunc func(ctx context.Context, accessToken, cursor string) (plaid.TransactionsSyncResponse, error)

// TransactionFetcher pulls new transactions of one Plaid account with
// /transactions/sync.
type TransactionFetcher struct {
	page syncPageFunc
}

func NewTransactionFetcher(client *plaid.APIClient) *TransactionFetcher {
	return &TransactionFetcher{
		page: func(ctx context.Context, accessToken, cursor string) (plaid.TransactionsSyncResponse, error) {
			request := plaid.NewTransactionsSyncRequest(accessToken)
			if cursor != "" {
				request.SetCursor(cursor)
			}
			request.SetCount(syncPageSize)
			resp, _, err := client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
			return resp, err
		},
	}
}

// Fetch pages from the account's stored cursor until Plaid reports no more
// data. It returns the added transactions of this account and the cursor to
// store once they are imported. Modified and removed entries are ignored; the
// ledger keeps what it first imported.
func (f *TransactionFetcher) Fetch(ctx context.Context, account models.Account) ([]models.RawTransaction, string, error) {
	log := logger.FromContext(ctx)

	for restart := 0; ; restart++ {
		batch, cursor, err := f.fetchAll(ctx, account)
		if err == nil {
			return batch, cursor, nil
		}
		if !isMutationDuringPagination(err) || restart >= maxSyncRestarts {
			return nil, "", apiError("transactions sync", err)
		}
		log.Warn().Str("account_id", account.ID.String()).Msg("Plaid data changed during pagination, restarting sync")
	}
}

func (f *TransactionFetcher) fetchAll(ctx context.Context, account models.Account) ([]models.RawTransaction, string, error) {
	var batch []models.RawTransaction
	cursor := account.SyncCursor
	for {
		resp, err := f.page(ctx, account.AccessToken, cursor)
		if err != nil {
			return nil, "", err
		}
		for _, txn := range resp.GetAdded() {
			if txn.GetAccountId() != account.ProviderAccountID {
				continue
			}
			batch = append(batch, toRawTransaction(txn))
		}
		cursor = resp.GetNextCursor()
		if !resp.GetHasMore() {
			return batch, cursor, nil
		}
	}
}

func isMutationDuringPagination(err error) bool {
	plaidErr, convErr := plaid.ToPlaidError(err)
	return convErr == nil && plaidErr.ErrorCode == mutationErrorCode
}

func toRawTransaction(txn plaid.Transaction) models.PlaidTransaction {
	raw := models.PlaidTransaction{
		AccountID:      txn.GetAccountId(),
		Amount:         models.RawAmount(strconv.FormatFloat(txn.GetAmount(), 'f', -1, 64)),
		Date:           txn.GetDate(),
		AuthorizedDate: txn.GetAuthorizedDate(),
		Name:           txn.GetName(),
		Pending:        txn.GetPending(),
	}
	if id := txn.GetTransactionId(); id != "" {
		raw.TransactionID = &id
	}
	if merchant := txn.GetMerchantName(); merchant != "" {
		raw.MerchantName = &merchant
	}
	if code := txn.GetIsoCurrencyCode(); code != "" {
		raw.IsoCurrencyCode = &code
	}
	if code := txn.GetUnofficialCurrencyCode(); code != "" {
		raw.UnofficialCurrencyCode = &code
	}
	return raw
}
