package exchange

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-bot/pkg/errors"
)

type CredentialsTestSuite struct {
	suite.Suite
}

func TestCredentialsSuite(t *testing.T) {
	suite.Run(t, new(CredentialsTestSuite))
}

func (suite *CredentialsTestSuite) TestParseCredentials_Valid() {
	creds, err := ParseCredentials(`{"apiKey": "test-api-key", "secretKey": "test-secret-key", "testnet": true}`)
	suite.NoError(err)
	suite.Require().NotNil(creds)
	suite.Equal("test-api-key", creds.APIKey)
	suite.Equal("test-secret-key", creds.SecretKey)
	suite.True(creds.Testnet)
}

func (suite *CredentialsTestSuite) TestParseCredentials_MissingSecretKey() {
	creds, err := ParseCredentials(`{"apiKey": "test-api-key"}`)
	suite.Error(err)
	suite.Nil(creds)
	suite.Contains(err.Error(), "invalid binance credentials")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingCredentials))
}

func (suite *CredentialsTestSuite) TestParseCredentials_InvalidJSON() {
	creds, err := ParseCredentials(`{not json`)
	suite.Nil(creds)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *CredentialsTestSuite) TestValidate_BadBaseURL() {
	creds := Credentials{APIKey: "a", SecretKey: "b", BaseURL: "not a url"}
	suite.Error(creds.Validate())
}
