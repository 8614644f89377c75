package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecrpublic"
	credclient "github.com/docker/docker-credential-helpers/client"

	"github.com/bibin-skaria/ocireg/internal/ocierr"
	"github.com/bibin-skaria/ocireg/internal/ocitypes"
)

const credentialHelperService = "docker-credential-helpers"

// DiscoverAuth resolves credentials for a registry base the same way the
// reference tooling does: finch config, then docker config (the OS
// keychain is consulted only as a nested fallback when one of those files
// has an entry for this base but it carries neither auth field), then,
// only if neither config file has an entry for this base at all, public
// ECR, then private ECR. It returns a nil token for anonymous access.
func DiscoverAuth(ctx context.Context, uri ocitypes.RegistryURI, httpClient *http.Client) (*Token, error) {
	if tok, ok, stop := fromConfigFiles(uri.Base); stop {
		if ok {
			return &tok, nil
		}
		return nil, nil
	}
	if isPublicECR(uri.Base) {
		tok, err := fromPublicECR(ctx)
		if err != nil {
			return nil, err
		}
		return &tok, nil
	}
	if isECR(uri.Base) {
		tok, err := fromPrivateECR(ctx, uri.Base)
		if err != nil {
			return nil, err
		}
		return &tok, nil
	}
	return nil, nil
}

func configFilePaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".finch", "config.json"),
		filepath.Join(home, ".docker", "config.json"),
	}
}

// fromConfigFiles implements §4.3 step 1: the first config file (finch,
// then docker) that has an entry for base decides the outcome, and a
// malformed or unreadable file falls through to the next one. Once any
// file has an entry for base, the chain stops there (stop=true) and
// never falls through to the cloud-provider probes, regardless of
// whether that entry yields a usable token: an entry with neither
// auth nor identitytoken set falls back to the OS keychain, and a miss
// there stops the whole chain with no token rather than trying ECR.
func fromConfigFiles(base string) (tok Token, ok bool, stop bool) {
	for _, path := range configFilePaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ocitypes.DockerConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			continue
		}
		entry, found := cfg.Auths[base]
		if !found {
			continue
		}
		if t, ok := ocitypes.ParseDockerAuth(entry); ok {
			return t, true, true
		}
		if t, ok := fromKeychain(base); ok {
			return t, true, true
		}
		return Token{}, false, true
	}
	return Token{}, false, false
}

// fromKeychain probes the native OS credential store through the same
// docker-credential-helpers protocol the Docker CLI uses, asking the
// platform's helper binary (see credentialHelperStoreName) for the
// registry base as the server URL. No keychain service name is passed;
// the helper decides where the credential is stored.
func fromKeychain(base string) (Token, bool) {
	program := credclient.NewShellProgramFunc("docker-credential-" + credentialHelperStoreName())
	creds, err := credclient.Get(program, base)
	if err != nil || creds == nil {
		return Token{}, false
	}
	if creds.Secret == "" {
		return Token{}, false
	}
	tok, err := ocitypes.ParseKeychainValue(creds.Secret)
	if err != nil {
		return Token{}, false
	}
	if tok.Kind == TokenBasic && creds.Username != "" {
		tok.Username = creds.Username
	}
	return tok, true
}

// credentialHelperStoreName names the platform's native credential-helper
// binary. Both finch and docker ship the same helper naming convention.
func credentialHelperStoreName() string {
	switch {
	case fileExists("/usr/bin/docker-credential-secretservice"):
		return "secretservice"
	case fileExists("/usr/local/bin/docker-credential-osxkeychain"):
		return "osxkeychain"
	default:
		return "pass"
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isPublicECR(base string) bool {
	return strings.HasPrefix(base, "public.ecr.aws")
}

func isECR(base string) bool {
	return strings.Contains(base, "ecr")
}

func fromPublicECR(ctx context.Context) (Token, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		return Token{}, ocierr.Authorization(err.Error())
	}
	client := ecrpublic.NewFromConfig(cfg)
	out, err := client.GetAuthorizationToken(ctx, &ecrpublic.GetAuthorizationTokenInput{})
	if err != nil {
		return Token{}, ocierr.Authorization(err.Error())
	}
	if out.AuthorizationData == nil || out.AuthorizationData.AuthorizationToken == nil {
		return Token{}, ocierr.Authorization("public ecr did not return an authorization token")
	}
	return Token{Kind: TokenBearer, Value: aws.ToString(out.AuthorizationData.AuthorizationToken)}, nil
}

func fromPrivateECR(ctx context.Context, base string) (Token, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return Token{}, ocierr.Authorization(err.Error())
	}
	client := ecr.NewFromConfig(cfg)
	out, err := client.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return Token{}, ocierr.Authorization(err.Error())
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return Token{}, ocierr.Authorization("ecr did not return an authorization token")
	}
	decoded, err := base64.StdEncoding.DecodeString(aws.ToString(out.AuthorizationData[0].AuthorizationToken))
	if err != nil {
		return Token{}, ocierr.Authorization(err.Error())
	}
	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return Token{}, ocierr.Authorization("ecr authorization token was not in user:password form")
	}
	return Token{Kind: TokenBasic, Username: user, Password: pass}, nil
}
