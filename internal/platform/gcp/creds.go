package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/yungbote/coursechat-backend/internal/platform/envutil"
)

// ClientOptionsFromEnv resolves credentials from GOOGLE_APPLICATION_CREDENTIALS_JSON, then
// GOOGLE_APPLICATION_CREDENTIALS. With neither set the client libraries use application
// default credentials.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	return clientOptions(creds)
}

// clientOptions accepts inline service-account JSON or a key file path.
func clientOptions(creds string) []option.ClientOption {
	switch creds = strings.TrimSpace(creds); {
	case creds == "":
		return nil
	case strings.HasPrefix(creds, "{"):
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	default:
		return []option.ClientOption{option.WithCredentialsFile(creds)}
	}
}
