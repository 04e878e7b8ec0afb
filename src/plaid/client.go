package plaid

import (
	"context"
	"fmt"

	"famfin-server/src/models"
	"famfin-server/src/pipeline"

	"github.com/google/uuid"
	"github.com/plaid/plaid-go/v41/plaid"
)

const clientName = "Famfin"

func NewPlaidClient(clientID, secret, env string) (*plaid.APIClient, error) {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)

	switch env {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	default:
		return nil, fmt.Errorf("invalid Plaid environment: %q", env)
	}

	return plaid.NewAPIClient(configuration), nil
}

func apiError(op string, err error) error {
	return &pipeline.ProviderAPIError{Provider: models.ProviderPlaid, Op: op, Err: err}
}

func CreateLinkToken(ctx context.Context, client *plaid.APIClient, clientUserID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{
		ClientUserId: clientUserID,
	}
	request := plaid.NewLinkTokenCreateRequest(
		clientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	resp, _, err := client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", apiError("link token create", err)
	}
	return resp.GetLinkToken(), nil
}

type LinkedItem struct {
	ItemID      string
	AccessToken string
	Accounts    []plaid.AccountBase
}

// ExchangePublicToken swaps a Link public token for an access token and
// fetches the accounts of the new item.
func ExchangePublicToken(ctx context.Context, client *plaid.APIClient, publicToken string) (*LinkedItem, error) {
	exchangeReq := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	exchangeResp, _, err := client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*exchangeReq).Execute()
	if err != nil {
		return nil, apiError("public token exchange", err)
	}

	accessToken := exchangeResp.GetAccessToken()
	accountsReq := plaid.NewAccountsGetRequest(accessToken)
	accountsResp, _, err := client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*accountsReq).Execute()
	if err != nil {
		return nil, apiError("accounts get", err)
	}

	return &LinkedItem{
		ItemID:      exchangeResp.GetItemId(),
		AccessToken: accessToken,
		Accounts:    accountsResp.GetAccounts(),
	}, nil
}

// FamilyAccounts maps the item's Plaid accounts onto family accounts ready to save.
func (item *LinkedItem) FamilyAccounts(familyID uuid.UUID) []models.Account {
	accounts := make([]models.Account, 0, len(item.Accounts))
	for _, acc := range item.Accounts {
		balances := acc.GetBalances()
		currency := balances.GetIsoCurrencyCode()
		if currency == "" {
			currency = pipeline.DefaultCurrency
		}
		accounts = append(accounts, models.Account{
			FamilyID:          familyID,
			Provider:          models.ProviderPlaid,
			ProviderAccountID: acc.GetAccountId(),
			ProviderItemID:    item.ItemID,
			Name:              acc.GetName(),
			Currency:          currency,
			AccessToken:       item.AccessToken,
		})
	}
	return accounts
}
