package azdo

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// azureDevOpsResource is the fixed AAD resource audience for Azure DevOps.
// Bearer tokens must be scoped to this application ID regardless of org.
const azureDevOpsResource = "499b84ac-1321-427f-aa17-267ca6975798"

// CredentialProvider resolves the Authorization header value for one
// connection. Resolution happens on every connection construction: a static
// PAT is returned as-is, a bearer token is re-requested from the ambient
// identity each time.
type CredentialProvider interface {
	Authorization(ctx context.Context) (string, error)
}

// NewCredentialProvider selects the provider for the process. A non-empty
// PAT wins unconditionally; its form is not validated here, the service
// rejects bad tokens on first use. Without a PAT the ambient Azure identity
// chain (environment, managed identity, Azure CLI) is consulted.
func NewCredentialProvider(pat string) (CredentialProvider, error) {
	if pat != "" {
		return &patCredential{pat: pat}, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Azure credential: %w", err)
	}
	return &bearerCredential{cred: cred}, nil
}

// patCredential authenticates with a personal access token using HTTP basic
// auth. Azure DevOps ignores the username portion.
type patCredential struct {
	pat string
}

func (p *patCredential) Authorization(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(":" + p.pat))
	return "Basic " + auth, nil
}

// bearerCredential requests a short-lived token from the ambient identity
// scoped to the Azure DevOps audience. No caching beyond what the identity
// SDK does internally; a failure propagates to the caller without retry.
type bearerCredential struct {
	cred azcore.TokenCredential
}

func (b *bearerCredential) Authorization(ctx context.Context) (string, error) {
	token, err := b.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{azureDevOpsResource + "/.default"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to acquire Azure DevOps token: %w", err)
	}
	return "Bearer " + token.Token, nil
}
